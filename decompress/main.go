package main

import (
	"flag"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/fumin/rangecoding"
	"github.com/pkg/errors"
)

var (
	precision = flag.Int("precision", 16, "number of bits the CDFs total")
	cdfPath   = flag.String("cdf", "", "JSON tensor file of the CDFs")
	shapeFlag = flag.String("shape", "", "comma separated shape of the decoded tensor, empty for a scalar")
	debug     = flag.Bool("debug", false, "validate every CDF")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	if *cdfPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*cdfPath, *shapeFlag, *precision, *debug); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(cdfPath, shapeStr string, precision int, debug bool) error {
	shape, err := parseShape(shapeStr)
	if err != nil {
		return errors.Wrap(err, "")
	}
	cdf, err := rangecoding.ReadTensorFile[int32](cdfPath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	encoded, err := io.ReadAll(os.Stdin)
	if err != nil {
		return errors.Wrap(err, "")
	}

	decoded, err := rangecoding.Decode(encoded, shape, cdf, precision, rangecoding.WithDebug(debug))
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := rangecoding.WriteTensor(os.Stdout, decoded); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func parseShape(s string) (rangecoding.Shape, error) {
	shape := rangecoding.Shape{}
	if strings.TrimSpace(s) == "" {
		return shape, nil
	}
	for _, f := range strings.Split(s, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, errors.Wrapf(err, "shape %q", s)
		}
		shape = append(shape, d)
	}
	return shape, nil
}
