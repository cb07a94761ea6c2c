////////////////////////////////////////////////////////////////////////////////
// Debond governance: staking-weighted governance contract for the vsc network
// entry points live in exports_wasm.go, the engine in ./dao
////////////////////////////////////////////////////////////////////////////////

package main

// main is left empty on purpose
func main() {

}
