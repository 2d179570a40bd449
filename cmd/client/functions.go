// Copyright 2023 AI Redefined Inc. <dev+cogment@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// functionsCmd represents the `ue4ml client functions` command
var functionsCmd = &cobra.Command{
	Use:     "functions",
	Aliases: []string{"list_functions"},
	Short:   "List the functions exposed by the environment, with their description",
	Args:    cobra.NoArgs,
	RunE: func(_cmd *cobra.Command, _args []string) error {
		consoleOutputFormat, err := retrieveConsoleOutputFormat()
		if err != nil {
			return err
		}

		client, err := createClient()
		if err != nil {
			return err
		}

		ctx, cancel := contextWithTimeout()
		defer cancel()

		functions, err := client.ListFunctions(ctx)
		if err != nil {
			return wrapTimeoutError(err)
		}
		descriptions := make(map[string]string, len(functions))
		for _, function := range functions {
			description, err := client.GetDescription(ctx, function)
			if err != nil {
				return wrapTimeoutError(err)
			}
			descriptions[function] = description
		}

		switch consoleOutputFormat {
		case text:
			table := tablewriter.NewWriter(os.Stdout)
			table.SetBorder(false)
			table.SetAutoWrapText(false)
			table.SetHeader([]string{"function", "description"})
			for _, function := range functions {
				table.Append([]string{function, descriptions[function]})
			}
			table.SetCaption(true, fmt.Sprintf("%d functions", len(functions)))
			table.Render()
		case json:
			return renderJSON(descriptions)
		}
		return nil
	},
}
