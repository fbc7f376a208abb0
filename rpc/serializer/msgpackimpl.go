package serializer

import (
	"github.com/ValentinKolb/mRPC/rpc/codec"
	"github.com/ValentinKolb/mRPC/rpc/common"
)

// NewMsgpackSerializer creates a new serializer using the msgpack-rpc wire format
func NewMsgpackSerializer() IRPCSerializer {
	return &msgpackSerializerImpl{decoder: codec.NewDecoder(common.DefaultCodecConfig())}
}

// NewMsgpackSerializerWithConfig creates a msgpack serializer with custom decoder limits
func NewMsgpackSerializerWithConfig(config common.CodecConfig) IRPCSerializer {
	return &msgpackSerializerImpl{decoder: codec.NewDecoder(config)}
}

// msgpackSerializerImpl implements the IRPCSerializer interface with the codec package
type msgpackSerializerImpl struct {
	decoder *codec.Decoder
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (m msgpackSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return codec.Encode(msg)
}

func (m msgpackSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	decoded, err := m.decoder.Unmarshal(b)
	if err != nil {
		return err
	}
	*msg = decoded
	return nil
}
