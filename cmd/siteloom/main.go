// Command siteloom runs an incremental XML/XSLT build pipeline declared in
// a YAML manifest.
package main

func main() {
	execute()
}
