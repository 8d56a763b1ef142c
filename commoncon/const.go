package commoncon

// 本地开发网络（每次运行都会重置）
const HardhatNetwork = "hardhat"
const LocalhostNetwork = "localhost"
const LocalChainID = 31337

// 模拟价格源参数
const Decimals = 8
const InitialAnswer = "200000000000" // 2000 USD，8位小数

// 合约名称
const MockV3AggregatorName = "MockV3Aggregator"
const FundMeName = "FundMe"

// 众筹最低金额（USD，18位小数）
const MinimumUSD = "50000000000000000000"

// 脚本默认转账金额（单位：ETH）
const DefaultFundValue = "0.1"

// 部署脚本标签
const TagAll = "all"
const TagMocks = "mocks"
const TagFundMe = "fundme"

// 价格源解析策略
const PriceFeedStrategyMock = "mock"
const PriceFeedStrategyStatic = "static"

// gas 计费
const (
	TxGas           uint64 = 21000
	TxCreateGas     uint64 = 53000
	ColdSloadGas    uint64 = 2100
	WarmSloadGas    uint64 = 100
	SstoreSetGas    uint64 = 20000
	SstoreResetGas  uint64 = 2900
	ColdCallGas     uint64 = 2600
	WarmCallGas     uint64 = 100
	CallValueGas    uint64 = 9000
	DefaultGasLimit uint64 = 30000000
)

const DefaultGasPriceWei = "1875000000"

// 开发账户
const DefaultMnemonic = "test test test test test test test test test test test junk"
const DefaultAccountCount = 20
const DefaultAccountBalance = "10000" // ETH

// redis key
const BlockChainKey = "BlockChain"
const ReceiptsKey = "receipts"

// levelDB key 前缀
const DeploymentKeyPrefix = "deployment/"

// 请求头
const RequestIDHeader = "X-Request-ID"
