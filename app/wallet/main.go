package main

import "github.com/agrimkaushik/powledger/app/wallet/cmd"

func main() {
	cmd.Execute()
}
