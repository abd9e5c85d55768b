package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mapgame/mapgame/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		baseURL    string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI specification",
		Long: `Generate the OpenAPI 3 document of the JSON API: the auth, admin, catalog
and public map endpoints. The running server serves the same document at
/swagger/openapi.json.`,
		Example: `  mapgame openapi                                  # print to stdout
  mapgame openapi -o openapi.json
  mapgame openapi --server https://map.example.org`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFile == "" {
				return runOpenAPI(baseURL, cmd.OutOrStdout())
			}
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("create %s: %w", outputFile, err)
			}
			defer f.Close()
			if err := runOpenAPI(baseURL, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "server", "", "Server URL to list in the document")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write spec to file instead of stdout")

	return cmd
}

func runOpenAPI(baseURL string, out io.Writer) error {
	data, err := openapi.JSON(versionString(), baseURL)
	if err != nil {
		return fmt.Errorf("generate openapi: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
