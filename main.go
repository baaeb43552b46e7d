// Package main is the entry point for the priceanalyzer application
package main

import "github.com/caravan-insights/priceanalyzer/cmd"

func main() {
	cmd.Execute()
}
