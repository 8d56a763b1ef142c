package levelDB

import (
	"path/filepath"
	"testing"

	"github.com/fundme/meta"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestDeploymentsInMemory(t *testing.T) {
	db, err := OpenMem()
	assert.NilError(t, err)
	defer db.Close()

	_, err = db.GetDeployment("FundMe")
	assert.ErrorIs(t, err, meta.ErrNotFound)

	assert.NilError(t, db.SaveDeployment(meta.Deployment{Name: "MockV3Aggregator", Address: "0xaa"}))
	assert.NilError(t, db.SaveDeployment(meta.Deployment{
		Name:     "FundMe",
		Contract: "FundMe",
		Address:  "0xbb",
		Args:     map[string]string{"priceFeed": "0xaa"},
	}))

	dep, err := db.GetDeployment("FundMe")
	assert.NilError(t, err)
	assert.Equal(t, dep.Address, "0xbb")
	assert.Equal(t, dep.Args["priceFeed"], "0xaa")

	// 其他前缀的 key 不会出现在部署列表里
	assert.NilError(t, db.Put("other", []byte("x")))
	deps, err := db.Deployments()
	assert.NilError(t, err)
	assert.Assert(t, is.Len(deps, 2))
	assert.Equal(t, deps[0].Name, "FundMe")
	assert.Equal(t, deps[1].Name, "MockV3Aggregator")

	assert.NilError(t, db.DeleteDeployment("FundMe"))
	_, err = db.GetDeployment("FundMe")
	assert.ErrorIs(t, err, meta.ErrNotFound)
}

func TestDeploymentsPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goerli")
	db, err := Open(path)
	assert.NilError(t, err)
	assert.NilError(t, db.SaveDeployment(meta.Deployment{Name: "FundMe", Address: "0xbb"}))
	assert.NilError(t, db.Close())

	db, err = Open(path)
	assert.NilError(t, err)
	defer db.Close()
	dep, err := db.GetDeployment("FundMe")
	assert.NilError(t, err)
	assert.Equal(t, dep.Address, "0xbb")
}
