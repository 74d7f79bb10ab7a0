// Command bptreedb is an interactive driver over a disk-backed B+ tree:
// it reads a line count, then that many `insert|delete|find` commands
// from stdin, and prints find results to stdout.
package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/bptreedb/bptreedb/internal/bptree"
	"github.com/bptreedb/bptreedb/internal/page"
	"github.com/bptreedb/bptreedb/texthash"
)

func main() {
	if err := run(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "bptreedb:", err)
		os.Exit(1)
	}
}

func run(in *os.File, out *os.File) error {
	tree, err := bptree.Open(bptree.Options[driverKey, int32]{
		DataFile:    "bptreedb.db",
		GarbageFile: "bptreedb.garbage",
		PoolSize:    64,
		ReplacerK:   2,
		KeyCodec:    driverKeyCodec{},
		ValCodec:    page.Int32Codec{},
		Cmp:         compareDriverKey,
	})
	if err != nil {
		return errors.Wrap(err, "open tree")
	}
	defer tree.Close()

	w := bufio.NewWriter(out)
	defer w.Flush()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return errors.Wrap(err, "parse command count")
	}

	for i := 0; i < n && scanner.Scan(); i++ {
		if err := execute(tree, w, scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func execute(tree *bptree.Tree[driverKey, int32], w *bufio.Writer, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "insert":
		if len(fields) != 3 {
			return errors.Errorf("insert: expected 2 arguments, got %d", len(fields)-1)
		}
		value, err := parseInt32(fields[2])
		if err != nil {
			return err
		}
		key := driverKey{hash: texthash.ShortenKey(fields[1]), disc: value}
		if _, err := tree.Insert(key, value); err != nil {
			return errors.Wrap(err, "insert")
		}

	case "delete":
		if len(fields) != 3 {
			return errors.Errorf("delete: expected 2 arguments, got %d", len(fields)-1)
		}
		value, err := parseInt32(fields[2])
		if err != nil {
			return err
		}
		key := driverKey{hash: texthash.ShortenKey(fields[1]), disc: value}
		if _, err := tree.Remove(key); err != nil {
			return errors.Wrap(err, "delete")
		}

	case "find":
		if len(fields) != 2 {
			return errors.Errorf("find: expected 1 argument, got %d", len(fields)-1)
		}
		values, err := findByIndex(tree, fields[1])
		if err != nil {
			return errors.Wrap(err, "find")
		}
		printResults(w, values)

	default:
		return errors.Errorf("unrecognized command %q", fields[0])
	}
	return nil
}

// findByIndex collects every value stored under the string index,
// regardless of disambiguator. A driverKey's ordering puts every entry
// sharing index's hash in one contiguous run, so positioning at the
// lowest possible disambiguator and scanning while the hash still
// matches recovers them all in ascending-disambiguator order.
func findByIndex(tree *bptree.Tree[driverKey, int32], index string) ([]int32, error) {
	hash := texthash.ShortenKey(index)

	it, err := tree.BeginAt(driverKey{hash: hash, disc: math.MinInt32})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []int32
	for !it.End() {
		k, v := it.Pair()
		if k.hash != hash {
			break
		}
		out = append(out, v)
		if err := it.Next(); err != nil {
			return out, err
		}
	}
	return out, nil
}

func printResults(w *bufio.Writer, values []int32) {
	if len(values) == 0 {
		fmt.Fprintln(w, "null")
		return
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(int(v))
	}
	fmt.Fprintln(w, strings.Join(parts, " "))
}

func parseInt32(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %q as int32", s)
	}
	return int32(n), nil
}
