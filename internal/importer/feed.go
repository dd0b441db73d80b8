package importer

import (
	"bytes"
	"io"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
)

// Feed is a decoded product feed.
type Feed struct {
	Products []Entry
}

// Entry is one product of a feed. Values are kept verbatim; validation
// happens when the entry is imported.
type Entry struct {
	GTIN  string
	Name  string
	Date  string
	Image string
}

var gzipMagic = []byte{0x1f, 0x8b}

// DecodeFeed parses a feed document. Gzip-compressed input is inflated first.
func DecodeFeed(data []byte) (*Feed, error) {
	if bytes.HasPrefix(data, gzipMagic) {
		inflated, err := gunzip(data)
		if err != nil {
			return nil, errors.Wrap(err, "gunzip")
		}
		data = inflated
	}

	var (
		feed  Feed
		found bool
	)
	d := jx.DecodeBytes(data)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "products" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		found = true
		return d.Arr(func(d *jx.Decoder) error {
			e, err := decodeEntry(d)
			if err != nil {
				return errors.Wrapf(err, "products[%d]", len(feed.Products))
			}
			feed.Products = append(feed.Products, e)
			return nil
		})
	}); err != nil {
		return nil, errors.Wrap(err, "parse json")
	}
	if tt := d.Next(); tt != jx.Invalid {
		return nil, errors.Errorf("parse json: unexpected %v after document", tt)
	}
	if !found {
		return nil, ErrNoProducts
	}
	return &feed, nil
}

func decodeEntry(d *jx.Decoder) (Entry, error) {
	var e Entry
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var dst *string
		switch string(key) {
		case "gtin":
			dst = &e.GTIN
		case "name":
			dst = &e.Name
		case "date":
			dst = &e.Date
		case "image":
			dst = &e.Image
		default:
			return d.Skip()
		}
		v, err := scalar(d)
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		*dst = v
		return nil
	})
	return e, err
}

// scalar reads a string-ish value: strings verbatim, numbers and booleans in
// their JSON spelling, null as empty.
func scalar(d *jx.Decoder) (string, error) {
	switch tt := d.Next(); tt {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	case jx.Bool:
		b, err := d.Bool()
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case jx.Null:
		return "", d.Null()
	default:
		return "", errors.Errorf("unexpected %v", tt)
	}
}

func gunzip(data []byte) ([]byte, error) {
	gz, err := pgzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = gz.Close() }()
	return io.ReadAll(gz)
}
