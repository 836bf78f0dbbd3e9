// Command jsonquery runs a path-expression query against a JSON or YAML
// document and prints the result as JSON.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mibar/jsonquery/pkg/query"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "jsonquery: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		yamlInput bool
		output    string
		compact   bool
		pretty    bool
	)

	cmd := &cobra.Command{
		Use:   "jsonquery <query> [file]",
		Short: "query and transform JSON documents",
		Long: `jsonquery compiles a path-expression query and evaluates it against a
JSON (or YAML) document read from a file or stdin.

Examples:
  jsonquery '@.users[:10].name' users.json
  jsonquery '@[@ > 2]' < numbers.json
  jsonquery --yaml '@.spec.containers[*].image' pod.yaml
  jsonquery '@.price = @ * 1.2' prices.json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(args)
			if err != nil {
				return err
			}

			q, err := query.Compile(args[0])
			if err != nil {
				return err
			}

			var out []byte
			if yamlInput {
				out, err = q.RunYAML(input)
			} else {
				out, err = q.Run(input)
			}
			if err != nil {
				return err
			}

			if shouldIndent(compact, pretty, output) {
				var buf bytes.Buffer
				if err := json.Indent(&buf, out, "", "  "); err != nil {
					return err
				}
				out = buf.Bytes()
			}
			out = append(out, '\n')

			if output != "" {
				return os.WriteFile(output, out, 0o644)
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	}

	cmd.Flags().BoolVar(&yamlInput, "yaml", false, "parse the input as YAML")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to a file (default: stdout)")
	cmd.Flags().BoolVar(&compact, "compact", false, "force compact output")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "force indented output")
	return cmd
}

func readInput(args []string) ([]byte, error) {
	if len(args) == 2 {
		return os.ReadFile(args[1])
	}
	return io.ReadAll(os.Stdin)
}

// shouldIndent picks indented output on a terminal and compact output in
// pipes and files, unless a flag forces one.
func shouldIndent(compact, pretty bool, output string) bool {
	if compact {
		return false
	}
	if pretty {
		return true
	}
	if output != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
