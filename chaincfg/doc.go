// Package chaincfg defines chain configuration parameters for the networks
// this node understands: mainnet, testnet, simnet, and regnet. Each network
// carries its own genesis header, PoW limit, ASERT anchor, and RandomX epoch
// domain tag, and is otherwise incompatible with the others.
//
// For main packages, a (typically global) var is assigned the address of one
// of the standard Params vars for use as the application's active network.
//
//	var activeNetParams = chaincfg.MainNetParams()
//
//	func main() {
//	        if *testnet {
//	                activeNetParams = chaincfg.TestNetParams()
//	        }
//	        chain, err := blockchain.New(activeNetParams, ...)
//	        ...
//	}
package chaincfg
