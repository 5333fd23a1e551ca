package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fumin/rangecoding"
	"github.com/pkg/errors"
)

var (
	precision = flag.Int("precision", 16, "number of bits the CDFs total")
	cdfPath   = flag.String("cdf", "", "JSON tensor file of the CDFs")
	debug     = flag.Bool("debug", false, "validate every symbol and CDF")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] data.json > encoded\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	name := flag.Arg(0)
	if name == "" || *cdfPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(name, *cdfPath, *precision, *debug); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(dataPath, cdfPath string, precision int, debug bool) error {
	data, err := rangecoding.ReadTensorFile[int16](dataPath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	cdf, err := rangecoding.ReadTensorFile[int32](cdfPath)
	if err != nil {
		return errors.Wrap(err, "")
	}

	encoded, err := rangecoding.Encode(data, cdf, precision, rangecoding.WithDebug(debug))
	if err != nil {
		return errors.Wrap(err, "")
	}
	if _, err := os.Stdout.Write(encoded); err != nil {
		return errors.Wrap(err, "")
	}
	log.Printf("%d elements of shape %v in %d bytes", len(data.Data), data.Shape, len(encoded))
	return nil
}
