package onnx

import "fmt"

// Attr returns the named attribute, or nil.
func (n *NodeProto) Attr(name string) *AttributeProto {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			return &n.Attributes[i]
		}
	}
	return nil
}

// AttrInt returns an integer attribute or def.
func (n *NodeProto) AttrInt(name string, def int64) int64 {
	if a := n.Attr(name); a != nil {
		return a.I
	}
	return def
}

// AttrInts returns an integer list attribute, or nil.
func (n *NodeProto) AttrInts(name string) []int64 {
	if a := n.Attr(name); a != nil {
		return a.Ints
	}
	return nil
}

// AttrFloat returns a float attribute or def.
func (n *NodeProto) AttrFloat(name string, def float32) float32 {
	if a := n.Attr(name); a != nil {
		return a.F
	}
	return def
}

// AttrString returns a string attribute or def.
func (n *NodeProto) AttrString(name, def string) string {
	if a := n.Attr(name); a != nil {
		return string(a.S)
	}
	return def
}

// Input returns input i, or "" when it is absent or omitted.
func (n *NodeProto) Input(i int) string {
	if i < len(n.Inputs) {
		return n.Inputs[i]
	}
	return ""
}

// DisplayName returns the node name, falling back to its first output.
func (n *NodeProto) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	if len(n.Outputs) > 0 {
		return n.Outputs[0]
	}
	return n.OpType
}

// pair returns a two-element int attribute such as strides or dilations,
// or def when the attribute is absent.
func pair(n *NodeProto, name string, def int) ([2]int, error) {
	v := n.AttrInts(name)
	switch len(v) {
	case 0:
		return [2]int{def, def}, nil
	case 2:
		return [2]int{int(v[0]), int(v[1])}, nil
	default:
		return [2]int{}, fmt.Errorf("%w: %s %q: %s must have 2 values, got %d",
			ErrUnsupportedOperator, n.OpType, n.DisplayName(), name, len(v))
	}
}

// pads2d reads [top, left, bottom, right] pads.
func pads2d(n *NodeProto) ([4]int, error) {
	v := n.AttrInts("pads")
	switch len(v) {
	case 0:
		return [4]int{}, nil
	case 4:
		return [4]int{int(v[0]), int(v[1]), int(v[2]), int(v[3])}, nil
	default:
		return [4]int{}, fmt.Errorf("%w: %s %q: pads must have 4 values, got %d",
			ErrUnsupportedOperator, n.OpType, n.DisplayName(), len(v))
	}
}

// checkAutoPad rejects the SAME_* padding modes, which need the input size
// at import time.
func checkAutoPad(n *NodeProto) error {
	switch p := n.AttrString("auto_pad", "NOTSET"); p {
	case "NOTSET", "VALID", "":
		return nil
	default:
		return fmt.Errorf("%w: %s %q: auto_pad %s", ErrUnsupportedOperator, n.OpType, n.DisplayName(), p)
	}
}
