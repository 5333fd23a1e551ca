// Command ratio compares the range coder against zstd on a directory of int16 tensor files.
//
// Each tensor is coded with a single CDF, quantized from the histogram of its own values and broadcast over all elements.
// The CDF is not counted in the compressed size.
package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"flag"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fumin/rangecoding"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

var (
	dataDir   = flag.String("d", "", "directory of JSON tensor files, for example ratio/testdata")
	precision = flag.Int("precision", 16, "number of bits the CDFs total")
	debug     = flag.Bool("debug", false, "validate every symbol and CDF")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	if *dataDir == "" {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(*dataDir, *precision, *debug); err != nil {
		log.Fatalf("%+v", err)
	}
}

type result struct {
	name     string
	elements int
	ranged   int
	zstd     int
}

func run(dir string, precision int, debug bool) error {
	files, err := listFiles(dir)
	if err != nil {
		return errors.Wrap(err, "")
	}

	items := make([]rangecoding.EncodeItem, 0, len(files))
	for _, fpath := range files {
		item, err := prepare(fpath, precision)
		if err != nil {
			return errors.Wrap(err, "")
		}
		items = append(items, item)
	}
	streams, err := rangecoding.EncodeAll(context.Background(), items, precision, rangecoding.WithDebug(debug))
	if err != nil {
		return errors.Wrap(err, "")
	}

	zenc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer zenc.Close()

	results := make([]result, 0, len(files))
	for i, fpath := range files {
		raw, err := rawBytes(items[i].Data.Data)
		if err != nil {
			return errors.Wrap(err, "")
		}
		results = append(results, result{
			name:     filepath.Base(fpath),
			elements: len(items[i].Data.Data),
			ranged:   len(streams[i]),
			zstd:     len(zenc.EncodeAll(raw, nil)),
		})
	}

	display(results)
	return nil
}

// prepare shifts the values of the tensor at fpath to start at zero,
// and builds the CDF of their histogram.
// The alphabet has at least two symbols so that constant tensors also pass validation.
func prepare(fpath string, precision int) (rangecoding.EncodeItem, error) {
	data, err := rangecoding.ReadTensorFile[int16](fpath)
	if err != nil {
		return rangecoding.EncodeItem{}, errors.Wrap(err, "")
	}
	if len(data.Data) == 0 {
		return rangecoding.EncodeItem{}, errors.Errorf("%s: empty tensor", fpath)
	}

	lo, hi := data.Data[0], data.Data[0]
	for _, v := range data.Data {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	alphabet := max(int(hi)-int(lo)+1, 2)
	if alphabet > 1<<precision || alphabet > math.MaxInt16+1 {
		return rangecoding.EncodeItem{}, errors.Errorf("%s: values span %d symbols, too many for precision %d", fpath, alphabet, precision)
	}
	shifted := make([]int16, len(data.Data))
	for i, v := range data.Data {
		shifted[i] = int16(int(v) - int(lo))
	}

	shiftedData := rangecoding.Tensor[int16]{Shape: data.Shape, Data: shifted}
	pmf, err := rangecoding.Histogram(shiftedData, alphabet)
	if err != nil {
		return rangecoding.EncodeItem{}, errors.Wrapf(err, "%s", fpath)
	}
	quantized, err := rangecoding.QuantizeCDF(pmf, precision)
	if err != nil {
		return rangecoding.EncodeItem{}, errors.Wrapf(err, "%s", fpath)
	}
	cdfShape := make(rangecoding.Shape, len(data.Shape)+1)
	for i := range data.Shape {
		cdfShape[i] = 1
	}
	cdfShape[len(data.Shape)] = len(quantized)

	item := rangecoding.EncodeItem{
		Data: shiftedData,
		CDF:  rangecoding.Tensor[int32]{Shape: cdfShape, Data: quantized},
	}
	return item, nil
}

func rawBytes(data []int16) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 2*len(data)))
	if err := binary.Write(buf, binary.LittleEndian, data); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return buf.Bytes(), nil
}

func display(results []result) {
	log.Printf("file,elements,range,zstd,range bits/element")
	for _, r := range results {
		bitsPerElement := math.NaN()
		if r.elements > 0 {
			bitsPerElement = 8 * float64(r.ranged) / float64(r.elements)
		}
		log.Printf("%s,%d,%d,%d,%s", r.name, r.elements, r.ranged, r.zstd, strconv.FormatFloat(bitsPerElement, 'f', 3, 64))
	}
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	data := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data = append(data, filepath.Join(dir, e.Name()))
	}
	return data, nil
}
