// Command dcmutil is a small inspection and maintenance CLI over the
// toolkit: dump a file's elements or strip its private tags.
package main

import (
	"fmt"
	"os"

	"github.com/opendcm-go/dicom"
	"github.com/opendcm-go/dicom/config"
	"github.com/opendcm-go/dicom/dataset"
	"github.com/opendcm-go/dicom/dcmerr"
	"github.com/opendcm-go/dicom/dictionary"
	"github.com/opendcm-go/dicom/internal/dcmlog"
)

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(2)
	}
	verb := os.Args[1]
	path := os.Args[2]

	cfg := config.FromEnv()
	var issueCount int
	issues := func(is dcmerr.Issue) {
		issueCount++
		dcmlog.Warn().Str("kind", is.Kind.String()).Msg(is.Message)
	}

	f, err := dicom.Open(path, cfg, issues)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dcmutil:", err)
		os.Exit(1)
	}

	switch verb {
	case "dump":
		dump(f)
	case "strip-private":
		out := path + ".stripped"
		n := f.Main.StripPrivateTags(nil)
		if err := f.Save(out, cfg); err != nil {
			fmt.Fprintln(os.Stderr, "dcmutil:", err)
			os.Exit(1)
		}
		fmt.Printf("removed %d private elements, wrote %s\n", n, out)
	case "recompress":
		fmt.Fprintln(os.Stderr, "dcmutil: recompress requires selecting a target codec; see codec/jpegbaseline and codec/rle")
		os.Exit(2)
	default:
		usage()
		os.Exit(2)
	}
	if issueCount > 0 {
		fmt.Fprintf(os.Stderr, "dcmutil: %d non-fatal issue(s) reported during parse\n", issueCount)
	}
}

func dump(f *dicom.File) {
	fmt.Printf("transfer syntax: %s (%s)\n", f.Syntax.UID, f.Syntax.Name)
	fmt.Println("-- file meta --")
	dumpDataset(f.Meta, 0)
	fmt.Println("-- dataset --")
	dumpDataset(f.Main, 0)
}

func dumpDataset(ds *dataset.Dataset, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	for _, t := range ds.Tags() {
		e, _ := ds.Get(t)
		entry, known := dictionary.Lookup(t)
		name := entry.Keyword
		if !known || name == "" {
			name = "Unknown"
		}
		switch v := e.Value.(type) {
		case dataset.SequenceValue:
			fmt.Printf("%s%s %s (%s) SQ, %d item(s)\n", indent, t, name, e.VR, len(v.Items))
			for _, item := range v.Items {
				dumpDataset(item, depth+1)
			}
		case dataset.StringValue:
			s, _ := ds.GetString(t)
			fmt.Printf("%s%s %s (%s): %q\n", indent, t, name, e.VR, s)
		case dataset.FragmentedValue:
			fmt.Printf("%s%s %s (%s): %d fragment(s)\n", indent, t, name, e.VR, len(v.Fragments))
		default:
			fmt.Printf("%s%s %s (%s): <%d raw byte(s)>\n", indent, t, name, e.VR, elementByteLen(e.Value))
		}
	}
}

func elementByteLen(v dataset.Value) int {
	switch vv := v.(type) {
	case dataset.BinaryValue:
		return len(vv.Raw)
	case dataset.NumericValue:
		return len(vv.Raw)
	default:
		return 0
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: dcmutil <dump|strip-private|recompress> <file>")
}
