// Command siteloom-new-node writes the source skeleton for a new node
// kind: a struct embedding node.Base, the methods the core.Node interface
// requires (Name/Items/Config/OutputConfig/ExplicitDependencies/Run) plus
// KindTag, and a FromSpec constructor ready to register against a
// manifest.Registry.
package main

import (
	"os"
	"path"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/fatih/camelcase"
	"github.com/spf13/cobra"
)

var newNodeCmd = &cobra.Command{
	Use:   "siteloom-new-node",
	Short: "Write the node source skeleton.",
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		name, _ := flags.GetString("name")
		outputDir, _ := flags.GetString("output")
		varname, _ := flags.GetString("varname")
		flag, _ := flags.GetString("flag")
		pkg, _ := flags.GetString("package")

		splitted := camelcase.Split(name)
		if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
			panic(err)
		}
		outputPath := path.Join(outputDir, strings.ToLower(strings.Join(splitted, "_"))+".go")

		gen := template.Must(template.New("node").Funcs(sprig.TxtFuncMap()).Parse(NodeTemplateSource))
		outFile, err := os.Create(outputPath)
		if err != nil {
			panic(err)
		}
		defer outFile.Close()

		if varname == "" {
			varname = strings.ToLower(splitted[0])
		}
		if flag == "" {
			flag = strings.ToLower(strings.Join(splitted, "-"))
		}
		dict := map[string]string{
			"name": name, "varname": varname, "flag": flag, "package": pkg,
		}
		if err := gen.Execute(outFile, dict); err != nil {
			panic(err)
		}
	},
}

func main() {
	if err := newNodeCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := newNodeCmd.Flags()
	flags.StringP("name", "n", "", "Name of the node type, CamelCase. Required.")
	_ = newNodeCmd.MarkFlagRequired("name")
	flags.StringP("output", "o", ".", "Output directory for the generated node file.")
	flags.String("varname", "", "Prefix for the node's struct fields. If not specified, inferred from -name.")
	flags.String("flag", "", "Manifest \"kind\" string this node should register under. If not specified, inferred from -name.")
	flags.String("package", "main", "Name of the package.")
}
