package node

import (
	"fmt"
	"runtime"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Container envelope
// ---------------------------------------------------------------------------

// MagicTag identifies the container format, version suffix included. A
// container whose magic differs byte for byte is rejected outright.
const MagicTag = "NODEMARSHAL20"

// PlatformTag is the running environment's platform identifier. Containers
// record the producer's tag and decoders compare it verbatim, refusing
// cross-platform loads.
func PlatformTag() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// container is the serialized form of one marshalled graph: compatibility
// tags, the five ordinal-indexed category arrays, and the node stream.
// The descriptive strings pass through unchanged and carry no semantics.
type container struct {
	Magic    string `cbor:"magic"`
	Platform string `cbor:"platform"`
	Version  string `cbor:"version"`

	Symbols  []string         `cbor:"symbols"`
	Values   []any            `cbor:"values"`
	Groups   [][]uint32       `cbor:"groups"`   // symbol ordinals per group
	Args     []wireArgsRecord `cbor:"args"`
	Bindings []uint32         `cbor:"bindings"` // symbol ordinal per binding

	NodeCount uint32 `cbor:"nodeCount"`
	Nodes     []byte `cbor:"nodes"`

	Name string `cbor:"name,omitempty"`
	File string `cbor:"file,omitempty"`
	Path string `cbor:"path,omitempty"`
}

// wireArgsRecord is the serialized form of an ArgsRecord. Node fields
// hold node ordinals and symbol fields hold symbol ordinals; -1 marks an
// absent reference.
type wireArgsRecord struct {
	PreInit     int64 `cbor:"preInit"`
	PostInit    int64 `cbor:"postInit"`
	PreCount    int64 `cbor:"preCount"`
	PostCount   int64 `cbor:"postCount"`
	FirstPost   int64 `cbor:"firstPost"`
	Rest        int64 `cbor:"rest"`
	Block       int64 `cbor:"block"`
	KeywordArgs int64 `cbor:"kwArgs"`
	KeywordRest int64 `cbor:"kwRest"`
	Optional    int64 `cbor:"optional"`
}

// cborEncMode uses canonical encoding so the same graph always produces
// the same bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("node-marshal: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// marshalContainer serializes a container to CBOR bytes.
func marshalContainer(c *container) ([]byte, error) {
	data, err := cborEncMode.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("node-marshal: encode container: %w", err)
	}
	return data, nil
}

// unmarshalContainer deserializes a container from CBOR bytes.
func unmarshalContainer(data []byte) (*container, error) {
	var c container
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, corrupt("container envelope: %v", err)
	}
	return &c, nil
}
