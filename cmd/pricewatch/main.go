package main

import (
	"fmt"
	"os"

	"github.com/andrewyi/pricewatch/src/server"
)

func main() {

	s := server.NewServer()
	app := server.NewApp(s)

	err := app.Run(os.Args)
	s.Stop()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
