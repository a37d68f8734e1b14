package main

import "github.com/frahmantamala/expense-sap-bridge/cmd"

func main() {
	cmd.Execute()
}
