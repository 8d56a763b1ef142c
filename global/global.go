package global

/*
 * 以下参数根据命令行参数确定，不要重新赋值
 */
var RootDir = "." // 项目根目录，.env、fundme.yaml、deployments/ 都相对于它
var Network = ""  // 当前使用的网络，空表示配置中的 defaultNetwork
var Verbose = false
