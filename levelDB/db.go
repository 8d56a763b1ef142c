// Package levelDB 部署记录的持久化存储。
package levelDB

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/commoncon"
	"github.com/fundme/meta"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	lvutil "github.com/syndtr/goleveldb/leveldb/util"
)

type DB struct {
	db *leveldb.DB
}

// Open 打开（或创建）path 下的数据库
func Open(path string) (*DB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		log.Error("db init err:", err)
		return nil, err
	}
	return &DB{db: db}, nil
}

// OpenMem 内存数据库，进程退出即丢失，用于临时网络
func OpenMem() (*DB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Get(key string) ([]byte, error) {
	data, err := d.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", key, meta.ErrNotFound)
	}
	if err != nil {
		log.Error("db get err:", err)
		return nil, err
	}
	return data, nil
}

func (d *DB) Put(key string, value []byte) error {
	if err := d.db.Put([]byte(key), value, nil); err != nil {
		log.Error("db put err:", err)
		return err
	}
	return nil
}

func (d *DB) Delete(key string) error {
	if err := d.db.Delete([]byte(key), nil); err != nil {
		log.Error("db delete err", err)
		return err
	}
	return nil
}

func deploymentKey(name string) string {
	return commoncon.DeploymentKeyPrefix + name
}

// SaveDeployment 同名部署会被覆盖
func (d *DB) SaveDeployment(dep meta.Deployment) error {
	data, err := json.Marshal(dep)
	if err != nil {
		return err
	}
	return d.Put(deploymentKey(dep.Name), data)
}

func (d *DB) GetDeployment(name string) (meta.Deployment, error) {
	var dep meta.Deployment
	data, err := d.Get(deploymentKey(name))
	if err != nil {
		return dep, err
	}
	err = json.Unmarshal(data, &dep)
	return dep, err
}

func (d *DB) DeleteDeployment(name string) error {
	return d.Delete(deploymentKey(name))
}

// Deployments 按名称排序返回所有部署记录
func (d *DB) Deployments() ([]meta.Deployment, error) {
	iter := d.db.NewIterator(lvutil.BytesPrefix([]byte(commoncon.DeploymentKeyPrefix)), nil)
	defer iter.Release()

	var deps []meta.Deployment
	for iter.Next() {
		var dep meta.Deployment
		if err := json.Unmarshal(iter.Value(), &dep); err != nil {
			return nil, fmt.Errorf("decode %s: %w", strings.TrimPrefix(string(iter.Key()), commoncon.DeploymentKeyPrefix), err)
		}
		deps = append(deps, dep)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	return deps, nil
}
