package cmd

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// docsCmd writes the Markdown documentation of every command
var docsCmd = &cobra.Command{
	Use:    "docs [dir]",
	Short:  "Write the command documentation as Markdown",
	Args:   cobra.MaximumNArgs(1),
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "./docs"
		if len(args) > 0 {
			dir = args[0]
		}
		return makeDocs(dir)
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
}

// https://pmarsceill.github.io/just-the-docs/docs/navigation-structure/
const rootDoc = `---
layout: default
title: %s
nav_order: %d
has_children: true
permalink: /
---
`

// child command without children
const childDoc = `---
layout: default
title: %s
parent: %s
nav_order: %d
---
`

// child with children
const childParentDoc = `---
layout: default
title: %s
parent: %s
nav_order: %d
has_children: true
---
`

// grandchildren
const grandchildDoc = `---
layout: default
title: %s
parent: %s
grand_parent: %s
nav_order: %d
---
`

// docType codes whether the command is a grandchild, child, etc
type docType int

const (
	root docType = iota
	child
	childParent
	grandchild
)

// meta is for describing the position/info for a command doc page
type meta struct {
	docType     docType
	title       string
	navOrder    int
	parent      string
	grandParent string
}

// map from the base Markdown file name to its build meta
var metaMap = map[string]meta{
	"ksites":                 {root, "ksites", 0, "", ""},
	"ksites_design":          {child, "design", 0, "ksites", ""},
	"ksites_find":            {childParent, "find", 1, "ksites", ""},
	"ksites_find_nuclease":   {grandchild, "nuclease", 0, "find", "ksites"},
	"ksites_set":             {childParent, "set", 2, "ksites", ""},
	"ksites_set_nuclease":    {grandchild, "nuclease", 0, "set", "ksites"},
	"ksites_delete":          {childParent, "delete", 3, "ksites", ""},
	"ksites_delete_nuclease": {grandchild, "nuclease", 0, "delete", "ksites"},
	"ksites_serve":           {child, "serve", 4, "ksites", ""},
}

// makeDocs writes a Markdown file per command to dir
func makeDocs(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	rootCmd.DisableAutoGenTag = true
	return doc.GenMarkdownTreeCustom(rootCmd, dir, filePrepender, linkHandler)
}

// filePrepender adds YAML headings that are required by the just-the-docs theme
// https://github.com/spf13/cobra/blob/master/doc/md_docs.md
func filePrepender(filename string) string {
	name := filepath.Base(filename)
	base := strings.TrimSuffix(name, path.Ext(name))
	m, ok := metaMap[base]
	if !ok {
		return ""
	}

	switch m.docType {
	case root:
		return fmt.Sprintf(rootDoc, m.title, m.navOrder)
	case child:
		return fmt.Sprintf(childDoc, m.title, m.parent, m.navOrder)
	case childParent:
		return fmt.Sprintf(childParentDoc, m.title, m.parent, m.navOrder)
	case grandchild:
		return fmt.Sprintf(grandchildDoc, m.title, m.parent, m.grandParent, m.navOrder)
	}

	return ""
}

// linkHandler returns the URL to a documentation page
func linkHandler(filename string) string {
	name := filepath.Base(filename)
	base := strings.TrimSuffix(name, path.Ext(name))

	if base == "ksites" {
		return "/"
	}
	return base
}
