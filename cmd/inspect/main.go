package main

import (
	"flag"
	"fmt"
	"os"

	"hangartalk/pkg/logger"
	"hangartalk/pkg/store"
)

// inspect dumps raw keys and values from a hangartalk database. Useful for
// debugging key layout issues without standing up the server.
func main() {
	var (
		path   string
		prefix string
		values bool
	)
	flag.StringVar(&path, "db", "", "path to the database directory")
	flag.StringVar(&prefix, "prefix", "", "only show keys with this prefix")
	flag.BoolVar(&values, "values", false, "print values alongside keys")
	flag.Parse()

	if path == "" {
		fmt.Fprintln(os.Stderr, "--db required")
		os.Exit(2)
	}

	logger.Init("error")
	st, err := store.Open(path, store.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open db at %s: %v\n", path, err)
		os.Exit(1)
	}
	defer st.Close()

	keys, err := st.ListKeys(prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list keys: %v\n", err)
		os.Exit(1)
	}
	for _, k := range keys {
		if !values {
			fmt.Println(k)
			continue
		}
		v, err := st.GetKey(k)
		if err != nil {
			fmt.Printf("%s\t<error: %v>\n", k, err)
			continue
		}
		fmt.Printf("%s\t%s\n", k, v)
	}
	fmt.Fprintf(os.Stderr, "%d keys\n", len(keys))
}
