package repository

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tipee-sa/sherpa/cluster"
)

// Codec is one on-disk snapshot encoding. The codec of an existing snapshot
// is recognized by its file extension, so a configuration change only affects
// newly created snapshots.
type Codec interface {
	Name() string
	Ext() string
	Encode(w io.Writer, c *cluster.Cluster) error
	Decode(r io.Reader) (*cluster.Cluster, error)
}

type gobCodec struct{}

func (gobCodec) Name() string { return "gob" }
func (gobCodec) Ext() string  { return ".gob" }

func (gobCodec) Encode(w io.Writer, c *cluster.Cluster) error {
	return gob.NewEncoder(w).Encode(c)
}

func (gobCodec) Decode(r io.Reader) (*cluster.Cluster, error) {
	var c cluster.Cluster
	if err := gob.NewDecoder(r).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Ext() string  { return ".json" }

func (jsonCodec) Encode(w io.Writer, c *cluster.Cluster) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

func (jsonCodec) Decode(r io.Reader) (*cluster.Cluster, error) {
	var c cluster.Cluster
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// codecs in recognition order; gob is the default for new snapshots.
var codecs = []Codec{gobCodec{}, jsonCodec{}}

func CodecByName(name string) (Codec, error) {
	for _, codec := range codecs {
		if codec.Name() == name {
			return codec, nil
		}
	}
	return nil, fmt.Errorf("unknown snapshot codec '%s'", name)
}

func DefaultCodec() Codec {
	return codecs[0]
}
