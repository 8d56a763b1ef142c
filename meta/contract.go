package meta

// 一次合约部署的记录
type Deployment struct {
	Name        string            `json:"name"`
	Contract    string            `json:"contract"`
	Address     string            `json:"address"`
	Args        map[string]string `json:"args"`
	Deployer    string            `json:"deployer"`
	TxHash      string            `json:"tx_hash"`
	BlockHeight uint64            `json:"block_height"`
	Receipt     *Receipt          `json:"receipt,omitempty"`
}
