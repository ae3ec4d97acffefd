package types

import "fmt"

// jsonbVersion is the single version byte JSONB prefixes its UTF-8 JSON
// payload with on the wire.
const jsonbVersion = 0x01

// JSON wraps a raw JSON document for the json/jsonb wire formats.
type JSON struct {
	Raw     []byte
	IsJSONB bool
	Valid   bool
}

func (JSON) AcceptsOID(oid uint32) bool { return oid == OIDJSON || oid == OIDJSONB }

func (j *JSON) FromSqlBinary(oid uint32, raw []byte) error {
	if oid == OIDJSONB {
		if len(raw) < 1 {
			return fmt.Errorf("jsonb: empty payload")
		}
		if raw[0] != jsonbVersion {
			return fmt.Errorf("jsonb: unrecognized version byte 0x%02x", raw[0])
		}
		j.Raw = raw[1:]
		j.IsJSONB = true
	} else {
		j.Raw = raw
		j.IsJSONB = false
	}
	j.Valid = true
	return nil
}

func (j JSON) ToSqlBinary() ([]byte, error) {
	if !j.IsJSONB {
		return j.Raw, nil
	}
	buf := make([]byte, 0, len(j.Raw)+1)
	buf = append(buf, jsonbVersion)
	buf = append(buf, j.Raw...)
	return buf, nil
}

func (j *JSON) FromSqlText(oid uint32, raw string) error {
	j.Raw = []byte(raw)
	j.IsJSONB = oid == OIDJSONB
	j.Valid = true
	return nil
}
