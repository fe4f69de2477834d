package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/teemow/tripbooker/internal/server"
	"github.com/teemow/tripbooker/internal/tools/booking_tools"
)

// Category order in the generated reference.
var toolCategories = []string{"Search Tools", "Payment Tools", "Widget Tools", "Other"}

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate a Markdown reference of the MCP tools served at /mcp.
The reference is built from the registered tool definitions, so it always
matches what clients see in tools/list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(outputFile string) error {
	// No backends: registration only needs the tool definitions.
	sc := server.NewServerContext(context.Background(), nil, nil, nil, nil)
	defer func() { _ = sc.Shutdown() }()

	s := newMCPServer()
	if err := booking_tools.RegisterBookingTools(s, sc, booking_tools.Config{
		WidgetBaseURL: "http://localhost:8080",
	}); err != nil {
		return fmt.Errorf("failed to register booking tools: %w", err)
	}

	tools := make([]mcp.Tool, 0, len(s.ListTools()))
	for _, st := range s.ListTools() {
		tools = append(tools, st.Tool)
	}

	var buf bytes.Buffer
	writeToolsMarkdown(&buf, tools)

	if outputFile == "" {
		_, err := buf.WriteTo(os.Stdout)
		return err
	}
	if err := os.WriteFile(outputFile, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	return nil
}

func toolCategory(name string) string {
	switch {
	case strings.HasPrefix(name, "search_"), strings.HasPrefix(name, "get_hotels"):
		return "Search Tools"
	case strings.HasSuffix(name, "_payments"):
		return "Payment Tools"
	case strings.HasPrefix(name, "show_"):
		return "Widget Tools"
	}
	return "Other"
}

func writeToolsMarkdown(w io.Writer, tools []mcp.Tool) {
	grouped := make(map[string][]mcp.Tool)
	for _, t := range tools {
		c := toolCategory(t.Name)
		grouped[c] = append(grouped[c], t)
	}

	fmt.Fprint(w, "# MCP Tools Reference\n\n")
	fmt.Fprint(w, "Tools served by tripbooker at `/mcp`. Generated from the tool definitions.\n\n")

	fmt.Fprint(w, "## Table of Contents\n\n")
	for _, c := range toolCategories {
		if len(grouped[c]) > 0 {
			fmt.Fprintf(w, "- [%s](#%s)\n", c, strings.ToLower(strings.ReplaceAll(c, " ", "-")))
		}
	}

	fmt.Fprint(w, "\n## Authentication\n\n")
	fmt.Fprint(w, "Every tool requires a Google access token obtained through the server's OAuth endpoints. ")
	fmt.Fprint(w, "Calls without a verified identity return `User not authenticated.`\n")

	for _, c := range toolCategories {
		list := grouped[c]
		if len(list) == 0 {
			continue
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

		fmt.Fprintf(w, "\n## %s\n", c)
		for _, t := range list {
			writeToolMarkdown(w, t)
		}
	}
}

func writeToolMarkdown(w io.Writer, t mcp.Tool) {
	fmt.Fprintf(w, "\n### %s\n\n", t.Name)
	if t.Description != "" {
		fmt.Fprintf(w, "%s\n\n", t.Description)
	}
	if t.Meta != nil {
		if template, ok := t.Meta.AdditionalFields["openai/outputTemplate"].(string); ok {
			fmt.Fprintf(w, "Widget: `%s`\n\n", template)
		}
	}

	props := t.InputSchema.Properties
	if len(props) == 0 {
		return
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprint(w, "**Arguments:**\n")
	for _, name := range names {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		presence := "optional"
		if slices.Contains(t.InputSchema.Required, name) {
			presence = "required"
		}
		desc, _ := prop["description"].(string)
		if desc == "" {
			typ, _ := prop["type"].(string)
			desc = typ + " parameter"
		}
		fmt.Fprintf(w, "- `%s` (%s): %s\n", name, presence, desc)
	}
}
