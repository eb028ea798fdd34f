package answers

import (
	"bytes"
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

const envelopeField = "answers"

// DecodeBody turns an answer-source payload into a Map. Accepted shapes:
//
//	{"answers": {"<question>": "<answer>", ...}}
//	{"answers": [{"question_number": 4, "answer": "..."}, ...]}
//	{"<question>": "<answer>", ...}
func DecodeBody(data []byte) (*Map, error) {
	envelope, found, err := findEnvelope(data)
	if err != nil {
		return nil, err
	}
	if !found {
		return decodeMapping(data)
	}

	switch firstByte(envelope) {
	case '{':
		return decodeMapping(envelope)
	case '[':
		return decodeNumbered(envelope)
	default:
		// "answers" is a plain scalar, so the document is a bare mapping that
		// happens to contain a question called "answers".
		return decodeMapping(data)
	}
}

// findEnvelope returns the raw "answers" value of a top-level object.
func findEnvelope(data []byte) ([]byte, bool, error) {
	iter := jsoniter.ConfigCompatibleWithStandardLibrary.BorrowIterator(data)
	defer jsoniter.ConfigCompatibleWithStandardLibrary.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return nil, false, fmt.Errorf("answers: payload is not a JSON object")
	}

	var raw []byte
	iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		if field == envelopeField && raw == nil {
			raw = append([]byte(nil), it.SkipAndReturnBytes()...)
			return true
		}
		it.Skip()
		return true
	})
	if iter.Error != nil {
		return nil, false, fmt.Errorf("answers: malformed payload: %w", iter.Error)
	}
	return raw, raw != nil, nil
}

// decodeNumbered remaps a packaged answers array through QuestionTable.
// Unknown question numbers are skipped.
func decodeNumbered(data []byte) (*Map, error) {
	iter := jsoniter.ConfigCompatibleWithStandardLibrary.BorrowIterator(data)
	defer jsoniter.ConfigCompatibleWithStandardLibrary.ReturnIterator(iter)

	m := NewMap()
	iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		if it.WhatIsNext() != jsoniter.ObjectValue {
			it.Skip()
			return true
		}
		var number, answer string
		var hasNumber, hasAnswer bool
		it.ReadObjectCB(func(obj *jsoniter.Iterator, field string) bool {
			switch field {
			case "question_number":
				number, hasNumber = readScalar(obj)
			case "answer":
				answer, hasAnswer = readScalar(obj)
			default:
				obj.Skip()
			}
			return true
		})
		if !hasNumber || !hasAnswer {
			return true
		}
		n, err := strconv.Atoi(number)
		if err != nil {
			return true
		}
		if question, ok := QuestionTable[n]; ok {
			m.Set(question, answer)
		}
		return true
	})
	if iter.Error != nil {
		return nil, fmt.Errorf("answers: malformed answers array: %w", iter.Error)
	}
	return m, nil
}

func firstByte(data []byte) byte {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
