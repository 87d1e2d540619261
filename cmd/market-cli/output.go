package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// printResult renders v to the app writer. YAML goes through a JSON round
// trip so both formats share the same field names.
func printResult(ctx *cli.Context, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return err
	}
	if ctx.String(outputFlag.Name) != "yaml" {
		_, err = fmt.Fprintln(ctx.App.Writer, string(raw))
		return err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return err
	}
	_, err = ctx.App.Writer.Write(out)
	return err
}
