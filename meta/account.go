package meta

import "math/big"

//账户

type Account struct {
	Address string      `json:"address"` //账户地址
	Balance *big.Int    `json:"balance"` //账户余额（wei）
	Nonce   uint64      `json:"nonce"`
	Data    AccountData `json:"data"`
}

type AccountData struct {
	ContractName string            `json:"contract_name"` //合约名称，外部账户为空
	Storage      map[string]string `json:"storage"`       //合约存储，slot -> json 值
	Immutables   map[string]string `json:"immutables"`    //部署时写入、之后只读
}

func (a Account) IsContract() bool {
	return a.Data.ContractName != ""
}
