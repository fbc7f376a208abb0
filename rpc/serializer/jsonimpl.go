package serializer

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"math"
	"strconv"
)

// NewJSONSerializer creates a new serializer using a tagged json encoding.
// Every value keeps its kind, so a message survives the round trip unchanged
// (except for invalid UTF-8 in strings).
//
//	{"type":"request","id":3,"method":"add","params":[{"t":"int","v":2},{"t":"int","v":2}]}
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// jsonMessage is the json form of all message variants
type jsonMessage struct {
	Type   *common.MessageType `json:"type"`
	ID     *uint32             `json:"id,omitempty"`
	Method *string             `json:"method,omitempty"`
	Params []*jsonValue        `json:"params,omitempty"`
	Result *jsonValue          `json:"result,omitempty"`
	Error  *jsonValue          `json:"error,omitempty"`
}

// jsonValue is the tagged json form of a common.Value
type jsonValue struct {
	T   string          `json:"t"`
	Ext *int8           `json:"ext,omitempty"`
	V   json.RawMessage `json:"v,omitempty"`
}

// jsonPair is a single map entry
type jsonPair struct {
	K *jsonValue `json:"k"`
	V *jsonValue `json:"v"`
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var jm jsonMessage
	var err error

	switch m := msg.(type) {
	case common.Request:
		jm = jsonMessage{ID: &m.ID, Method: &m.Method}
		jm.Params, err = toJSONValues(m.Params)
	case common.Notification:
		jm = jsonMessage{Method: &m.Method}
		jm.Params, err = toJSONValues(m.Params)
	case common.Response:
		jm = jsonMessage{ID: &m.ID}
		if m.IsError() {
			jm.Error, err = toJSONValue(m.Err())
		} else {
			jm.Result, err = toJSONValue(m.Result())
		}
	default:
		return nil, fmt.Errorf("json: unsupported message type %T", msg)
	}
	if err != nil {
		return nil, err
	}

	t := msg.Type()
	jm.Type = &t
	return json.Marshal(jm)
}

func (j jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	var jm jsonMessage
	if err := json.Unmarshal(b, &jm); err != nil {
		return err
	}
	if jm.Type == nil {
		return errors.New("json: message without type")
	}

	switch *jm.Type {
	case common.MsgTRequest:
		if jm.ID == nil || jm.Method == nil {
			return errors.New("json: request needs id and method")
		}
		params, err := fromJSONValues(jm.Params)
		if err != nil {
			return err
		}
		*msg = common.NewRequest(*jm.ID, *jm.Method, params...)

	case common.MsgTNotification:
		if jm.Method == nil {
			return errors.New("json: notification needs a method")
		}
		params, err := fromJSONValues(jm.Params)
		if err != nil {
			return err
		}
		*msg = common.NewNotification(*jm.Method, params...)

	case common.MsgTResponse:
		if jm.ID == nil {
			return errors.New("json: response needs an id")
		}
		if jm.Error != nil {
			if jm.Result != nil && jm.Result.T != common.KindNil.String() {
				return errors.New("json: response carries both error and result")
			}
			errValue, err := fromJSONValue(jm.Error)
			if err != nil {
				return err
			}
			*msg = common.NewErrorResponse(*jm.ID, errValue)
			return nil
		}
		var result common.Value = common.Nil{}
		if jm.Result != nil {
			var err error
			if result, err = fromJSONValue(jm.Result); err != nil {
				return err
			}
		}
		*msg = common.NewResultResponse(*jm.ID, result)

	default:
		return fmt.Errorf("json: unknown message type %d", *jm.Type)
	}

	return nil
}

// --------------------------------------------------------------------------
// Value Conversion
// --------------------------------------------------------------------------

func toJSONValues(vs []common.Value) ([]*jsonValue, error) {
	out := make([]*jsonValue, len(vs))
	for i, v := range vs {
		jv, err := toJSONValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = jv
	}
	return out, nil
}

func toJSONValue(v common.Value) (*jsonValue, error) {
	if common.IsNil(v) {
		return &jsonValue{T: common.KindNil.String()}, nil
	}

	jv := &jsonValue{T: v.Kind().String()}
	var raw any

	switch x := v.(type) {
	case common.Bool:
		raw = bool(x)
	case common.Integer:
		// the decimal form is a valid json number for the whole range
		jv.V = json.RawMessage(x.String())
		return jv, nil
	case common.Float:
		f := float64(x)
		switch {
		case math.IsNaN(f):
			raw = "NaN"
		case math.IsInf(f, 1):
			raw = "+Inf"
		case math.IsInf(f, -1):
			raw = "-Inf"
		default:
			raw = f
		}
	case common.String:
		raw = string(x)
	case common.Binary:
		raw = []byte(x)
	case common.Array:
		items, err := toJSONValues(x)
		if err != nil {
			return nil, err
		}
		raw = items
	case common.Map:
		pairs := make([]jsonPair, len(x))
		for i, p := range x {
			k, err := toJSONValue(p.Key)
			if err != nil {
				return nil, err
			}
			val, err := toJSONValue(p.Value)
			if err != nil {
				return nil, err
			}
			pairs[i] = jsonPair{K: k, V: val}
		}
		raw = pairs
	case common.Extension:
		t := x.Type
		jv.Ext = &t
		raw = x.Data
	default:
		return nil, fmt.Errorf("json: unsupported value type %T", v)
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	jv.V = b
	return jv, nil
}

func fromJSONValues(jvs []*jsonValue) ([]common.Value, error) {
	out := make([]common.Value, len(jvs))
	for i, jv := range jvs {
		v, err := fromJSONValue(jv)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func fromJSONValue(jv *jsonValue) (common.Value, error) {
	if jv == nil {
		return nil, errors.New("json: missing value")
	}

	switch jv.T {
	case common.KindNil.String():
		return common.Nil{}, nil

	case common.KindBool.String():
		var b bool
		if err := json.Unmarshal(jv.V, &b); err != nil {
			return nil, err
		}
		return common.Bool(b), nil

	case common.KindInteger.String():
		var n json.Number
		if err := json.Unmarshal(jv.V, &n); err != nil {
			return nil, err
		}
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return common.Int(i), nil
		}
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("json: integer out of range: %s", n)
		}
		return common.Uint(u), nil

	case common.KindFloat.String():
		var f float64
		if err := json.Unmarshal(jv.V, &f); err == nil {
			return common.Float(f), nil
		}
		var s string
		if err := json.Unmarshal(jv.V, &s); err != nil {
			return nil, err
		}
		switch s {
		case "NaN":
			return common.Float(math.NaN()), nil
		case "+Inf":
			return common.Float(math.Inf(1)), nil
		case "-Inf":
			return common.Float(math.Inf(-1)), nil
		default:
			return nil, fmt.Errorf("json: invalid float %q", s)
		}

	case common.KindString.String():
		var s string
		if err := json.Unmarshal(jv.V, &s); err != nil {
			return nil, err
		}
		return common.String(s), nil

	case common.KindBinary.String():
		b := []byte{}
		if len(jv.V) > 0 {
			if err := json.Unmarshal(jv.V, &b); err != nil {
				return nil, err
			}
		}
		return common.Binary(b), nil

	case common.KindArray.String():
		var items []*jsonValue
		if len(jv.V) > 0 {
			if err := json.Unmarshal(jv.V, &items); err != nil {
				return nil, err
			}
		}
		values, err := fromJSONValues(items)
		if err != nil {
			return nil, err
		}
		return common.Array(values), nil

	case common.KindMap.String():
		var pairs []jsonPair
		if len(jv.V) > 0 {
			if err := json.Unmarshal(jv.V, &pairs); err != nil {
				return nil, err
			}
		}
		m := make(common.Map, len(pairs))
		for i, p := range pairs {
			k, err := fromJSONValue(p.K)
			if err != nil {
				return nil, err
			}
			v, err := fromJSONValue(p.V)
			if err != nil {
				return nil, err
			}
			m[i] = common.Pair{Key: k, Value: v}
		}
		return m, nil

	case common.KindExtension.String():
		if jv.Ext == nil {
			return nil, errors.New("json: extension without type")
		}
		data := []byte{}
		if len(jv.V) > 0 {
			if err := json.Unmarshal(jv.V, &data); err != nil {
				return nil, err
			}
		}
		return common.Extension{Type: *jv.Ext, Data: data}, nil

	default:
		return nil, fmt.Errorf("json: unknown value tag %q", jv.T)
	}
}
