package api

import "encoding/base64"

// DecodeBinaryNodes recursively walks a decoded JSON value and replaces every
// node of the shape {"type": "bytes", "encoding": "base64", "content": <string>}
// with its decoded []byte content. Sibling metadata on such a node
// (mime_type, name, ...) is discarded by the replacement; callers that need
// it must read it off the node before decoding. A node whose content fails to
// decode is left unchanged rather than failing the whole body. The walk
// covers nested objects and arrays at arbitrary depth and is an identity on
// everything else.
func DecodeBinaryNodes(v any) any {
	switch node := v.(type) {
	case map[string]any:
		if decoded, ok := decodeBytesNode(node); ok {
			return decoded
		}
		for key, child := range node {
			node[key] = DecodeBinaryNodes(child)
		}
		return node
	case []any:
		for i, child := range node {
			node[i] = DecodeBinaryNodes(child)
		}
		return node
	default:
		return v
	}
}

func decodeBytesNode(node map[string]any) ([]byte, bool) {
	if t, ok := node["type"].(string); !ok || t != "bytes" {
		return nil, false
	}
	if enc, ok := node["encoding"].(string); !ok || enc != "base64" {
		return nil, false
	}
	content, ok := node["content"].(string)
	if !ok {
		return nil, false
	}
	decoded, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, false
	}
	return decoded, true
}
