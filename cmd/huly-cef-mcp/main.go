package main

import (
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/bootstrap"
)

func main() {
	bootstrap.NewApp().Run()
}
