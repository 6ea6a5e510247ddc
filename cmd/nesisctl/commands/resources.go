package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// resourceEndpoints maps CLI resource names to console API endpoints.
var resourceEndpoints = map[string]string{
	"settings":    "{module}/settings",
	"roles":       "roles",
	"users":       "users",
	"apps":        "apps",
	"tasks":       "tasks",
	"datasources": "datasources",
	"predictions": "qanda/predictions",
}

func resourceNames() string {
	names := make([]string, 0, len(resourceEndpoints))
	for name := range resourceEndpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func resourceEndpoint(resource, module string) (string, error) {
	endpoint, ok := resourceEndpoints[resource]
	if !ok {
		return "", fmt.Errorf("unknown resource %q (expected one of: %s)", resource, resourceNames())
	}
	if strings.Contains(endpoint, "{module}") {
		if module == "" {
			return "", fmt.Errorf("--module is required for %s", resource)
		}
		endpoint = strings.ReplaceAll(endpoint, "{module}", url.PathEscape(module))
	}
	return endpoint, nil
}

func itemEndpoint(resource, module, id string) (string, error) {
	endpoint, err := resourceEndpoint(resource, module)
	if err != nil {
		return "", err
	}
	return endpoint + "/" + url.PathEscape(id), nil
}

func newListCmd(opts *options) *cobra.Command {
	var module string
	var query []string

	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "List resources",
		Long:  "List resources. Resources: " + resourceNames(),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, err := resourceEndpoint(args[0], module)
			if err != nil {
				return err
			}
			values, err := parseQuery(query)
			if err != nil {
				return err
			}

			var out any
			if err := opts.client(cmd).Get(cmd.Context(), endpoint, values, &out); err != nil {
				return describeError(err)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "Module name for module scoped resources")
	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "Query parameter as key=value (repeatable)")

	return cmd
}

func newGetCmd(opts *options) *cobra.Command {
	var module string

	cmd := &cobra.Command{
		Use:   "get <resource> <id>",
		Short: "Get a resource by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, err := itemEndpoint(args[0], module, args[1])
			if err != nil {
				return err
			}

			var out any
			if err := opts.client(cmd).Get(cmd.Context(), endpoint, nil, &out); err != nil {
				return describeError(err)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "Module name for module scoped resources")

	return cmd
}

func newSaveCmd(opts *options) *cobra.Command {
	var module, file string

	cmd := &cobra.Command{
		Use:   "save <resource>",
		Short: "Create or update a resource",
		Long:  "Create or update a resource from a JSON document. A document carrying an id updates the existing resource.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, err := resourceEndpoint(args[0], module)
			if err != nil {
				return err
			}
			body, err := readDocument(cmd, file)
			if err != nil {
				return err
			}

			var out any
			if err := opts.client(cmd).Post(cmd.Context(), endpoint, body, &out); err != nil {
				return describeError(err)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "Module name for module scoped resources")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON document to send, - for stdin")

	return cmd
}

func newDeleteCmd(opts *options) *cobra.Command {
	var module string

	cmd := &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete a resource by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, err := itemEndpoint(args[0], module, args[1])
			if err != nil {
				return err
			}

			if err := opts.client(cmd).Delete(cmd.Context(), endpoint, nil, nil); err != nil {
				return describeError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "Module name for module scoped resources")

	return cmd
}

func newRolesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "roles <users|apps> <id>",
		Short: "List the roles of a user or app",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "users" && args[0] != "apps" {
				return fmt.Errorf("roles are listed for users or apps, not %q", args[0])
			}

			var out any
			endpoint := args[0] + "/" + url.PathEscape(args[1]) + "/roles"
			if err := opts.client(cmd).Get(cmd.Context(), endpoint, nil, &out); err != nil {
				return describeError(err)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func parseQuery(pairs []string) (url.Values, error) {
	values := url.Values{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid query parameter %q, expected key=value", pair)
		}
		values.Add(key, value)
	}
	return values, nil
}

func readDocument(cmd *cobra.Command, file string) (json.RawMessage, error) {
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("document is not valid JSON")
	}
	return json.RawMessage(data), nil
}
