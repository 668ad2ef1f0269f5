package splitter

import "jsonsplit/pkg/jsoncodec"

// Serialized layout overheads, per file and per item.
//
// A json file holds one array: "[\n", two-space indented items joined by
// ",\n", then "\n]". That is 2 bytes of bracket overhead per file and
// exactly 4 bytes around every item, the final item's newline being part of
// the closing bracket pair. A jsonl file is one item per line: 1 byte per
// item and nothing per file. Estimates made with these constants equal the
// written file size for items that serialize cleanly.
const (
	jsonBaseOverhead  int64 = 2
	jsonItemOverhead  int64 = 4
	jsonlBaseOverhead int64 = 0
	jsonlItemOverhead int64 = 1
)

func overheads(format Format) (base, perItem int64) {
	if format == FormatJSONL {
		return jsonlBaseOverhead, jsonlItemOverhead
	}
	return jsonBaseOverhead, jsonItemOverhead
}

// estimateItem returns the encoded length of one item in the given format,
// including its per-item layout overhead.
func estimateItem(item any, format Format) (int64, error) {
	enc, err := jsoncodec.Marshal(item)
	if err != nil {
		return 0, err
	}
	_, perItem := overheads(format)
	return int64(len(enc)) + perItem, nil
}
