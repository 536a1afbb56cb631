package main

import (
	"news-impact-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
