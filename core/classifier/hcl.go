package classifier

import (
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/hashicorp/hcl/v2/hclwrite"

	cgerrors "circularity-gap/internal/errors"
)

// LoadFile reads a schema from an .hcl (or .hcl.json) file
func LoadFile(path string) (*Schema, error) {
	var spec Spec
	if err := hclsimple.DecodeFile(path, nil, &spec); err != nil {
		return nil, cgerrors.Parsing("decode schema "+path, err)
	}
	return New(spec)
}

// Decode parses schema source held in memory; filename picks the syntax
func Decode(filename string, src []byte) (*Schema, error) {
	var spec Spec
	if err := hclsimple.Decode(filename, src, nil, &spec); err != nil {
		return nil, cgerrors.Parsing("decode schema "+filename, err)
	}
	return New(spec)
}

// Encode renders a spec as HCL
func Encode(spec Spec) []byte {
	f := hclwrite.NewEmptyFile()
	gohcl.EncodeIntoBody(&spec, f.Body())
	return f.Bytes()
}
