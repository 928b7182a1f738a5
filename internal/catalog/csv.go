package catalog

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var ErrNoGTINColumn = errors.New("csv: no gtin column in header")

// headerAliases maps normalized export headers to RawProduct fields.
var headerAliases = map[string]string{
	"gtin":                          "gtin",
	"ean":                           "gtin",
	"barcode":                       "gtin",
	"name":                          "name",
	"title":                         "name",
	"product name":                  "name",
	"brand":                         "brand",
	"category":                      "category",
	"price":                         "price",
	"base price":                    "price",
	"lowest price":                  "price",
	"€ lowest price inc. shipping":  "price",
	"lowest price inc. shipping":    "price",
	"inventory":                     "inventory",
	"stock":                         "inventory",
	"quantity":                      "inventory",
	"total inventory of all offers": "inventory",
	"supplier":                      "supplier",
	"description":                   "description",
	"image url":                     "image_url",
	"image_url":                     "image_url",
	"image":                         "image_url",
	"url":                           "url",
	"product url":                   "url",
	"product_url":                   "url",
}

// Decoder returns the text decoder for a configured charset name.
func Decoder(charset string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM.NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1251", "cp1251":
		return charmap.Windows1251.NewDecoder(), nil
	}
	return nil, fmt.Errorf("csv: unsupported charset %q", charset)
}

// DecodeCSV reads a bulk export. The delimiter is sniffed from the header line.
// Rows are returned raw; Transform decides what is usable.
func DecodeCSV(r io.Reader, charset string) ([]RawProduct, error) {
	dec, err := Decoder(charset)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(transform.NewReader(r, dec))
	head, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	if len(bytes.TrimSpace(head)) == 0 {
		return nil, nil
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(head)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		if field, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := cols[field]; !dup {
				cols[field] = i
			}
		}
	}
	if _, ok := cols["gtin"]; !ok {
		return nil, ErrNoGTINColumn
	}

	var out []RawProduct
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", len(out)+2, err)
		}
		get := func(field string) Text {
			i, ok := cols[field]
			if !ok || i >= len(rec) {
				return ""
			}
			return Text(strings.TrimSpace(rec[i]))
		}
		out = append(out, RawProduct{
			GTIN:        get("gtin"),
			Name:        get("name"),
			Brand:       get("brand"),
			Category:    get("category"),
			Price:       Amount{Text: get("price").String()},
			Inventory:   get("inventory"),
			Supplier:    get("supplier"),
			Description: get("description"),
			ImageURL:    get("image_url"),
			ProductURL:  get("url"),
		})
	}
	return out, nil
}

func sniffDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	best, bestN := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
