package main

import "github.com/ValentinKolb/mRPC/cmd"

func main() {
	cmd.Execute()
}
