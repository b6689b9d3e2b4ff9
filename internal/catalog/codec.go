package catalog

import "encoding/json"

func encodeEntry(e Entry) ([]byte, error) { return json.Marshal(e) }

func decodeEntry(val []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(val, &e); err != nil {
		return Entry{}, err
	}
	return e, nil
}
