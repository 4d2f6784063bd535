package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/seekkrr/landingpage/pkg/waitlist"
)

func newHealthCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the interest API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := newClient(v).Health(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("health check: %w", err)
			}
			out := cmd.OutOrStdout()
			switch v.GetString("output") {
			case "json", "yaml":
				return encode(out, v.GetString("output"), h)
			}
			status := h.Status
			if status == "" {
				status = "ok"
			}
			if !h.OK {
				status = "unhealthy"
			}
			fmt.Fprintf(out, "%s %s\n", status, h.Version)
			return nil
		},
	}
}

func rangeFlags(cmd *cobra.Command, r *waitlist.Range) {
	cmd.Flags().StringVar(&r.From, "from", "", "earliest creation date, YYYY-MM-DD")
	cmd.Flags().StringVar(&r.To, "to", "", "latest creation date, YYYY-MM-DD")
}

func newListCmd(v *viper.Viper) *cobra.Command {
	var r waitlist.Range
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List waitlist submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := newClient(v).ListInterests(commandContext(cmd), r)
			if err != nil {
				return fmt.Errorf("list interests: %w", err)
			}
			out := cmd.OutOrStdout()
			if format := v.GetString("output"); format != "table" {
				return encode(out, format, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(out, "No submissions.")
				return nil
			}
			table := tablewriter.NewWriter(out)
			table.Header("ID", "Name", "Email", "Phone", "Created")
			for _, it := range items {
				if err := table.Append(fmt.Sprint(it.ID), it.Name, it.Email, it.Phone, it.CreatedAt); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
	rangeFlags(cmd, &r)
	return cmd
}

func newExportCmd(v *viper.Viper) *cobra.Command {
	var (
		r    waitlist.Range
		dest string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download submissions as CSV",
		Long:  "Download submissions as CSV. Use --file - to write to stdout.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, name, err := newClient(v).ExportCSV(commandContext(cmd), r)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if dest == "-" {
				_, err := cmd.OutOrStdout().Write(body)
				return err
			}
			if dest == "" {
				dest = name
			}
			if dest == "" {
				dest = "interests.csv"
			}
			if err := os.WriteFile(dest, body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", dest, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", len(body), dest)
			return nil
		},
	}
	rangeFlags(cmd, &r)
	cmd.Flags().StringVarP(&dest, "file", "f", "", "output file (default: server-suggested name)")
	return cmd
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
