package repository

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/box1bs/spyglass/internal/model"
)

const (
	DocumentKeyPrefix 	= "doc:"
	UrlKeyPrefix 		= "url:"
	StemKeyFormat 		= "stem:%s:%s"
	WordIdKeyPrefix 	= "wid:%s:"
	PostingKeyFormat 	= "post:%s:%010d:%010d:%06d:%06d:%06d"
	ForwardKeyFormat 	= "fwd:%010d:%s:%010d"
	LinkKeyFormat 		= "link:%010d:%s"
	ReverseLinkFormat 	= "rlink:%s\x00%010d"
)

func documentKey(id uint32) []byte {
	return fmt.Appendf(nil, "%s%010d", DocumentKeyPrefix, id)
}

func urlKey(url string) []byte {
	return []byte(UrlKeyPrefix + url)
}

func stemKey(ns model.Namespace, stem string) []byte {
	return fmt.Appendf(nil, StemKeyFormat, ns, stem)
}

func wordIdPrefix(ns model.Namespace) []byte {
	return fmt.Appendf(nil, WordIdKeyPrefix, ns)
}

func wordIdKey(ns model.Namespace, wid uint32) []byte {
	return fmt.Appendf(wordIdPrefix(ns), "%010d", wid)
}

func postingKey(ns model.Namespace, wid uint32, occ model.Occurrence) []byte {
	return fmt.Appendf(nil, PostingKeyFormat, ns, wid, occ.DocId, occ.Paragraph, occ.Sentence, occ.Position)
}

func postingPrefix(ns model.Namespace, wid uint32) []byte {
	return fmt.Appendf(nil, "post:%s:%010d:", ns, wid)
}

func postingDocPrefix(ns model.Namespace, wid, docId uint32) []byte {
	return fmt.Appendf(postingPrefix(ns, wid), "%010d:", docId)
}

// parsePostingKey reads doc id and location back from a posting key whose
// "post:<ns>:<wid>:" prefix has already been stripped.
func parsePostingKey(rest string) (model.Occurrence, error) {
	parts := strings.Split(rest, ":")
	if len(parts) != 4 {
		return model.Occurrence{}, fmt.Errorf("malformed posting key suffix %q", rest)
	}
	nums := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return model.Occurrence{}, fmt.Errorf("malformed posting key suffix %q: %w", rest, err)
		}
		nums[i] = n
	}
	return model.Occurrence{
		DocId:     uint32(nums[0]),
		Paragraph: nums[1],
		Sentence:  nums[2],
		Position:  nums[3],
	}, nil
}

func forwardKey(docId uint32, ns model.Namespace, wid uint32) []byte {
	return fmt.Appendf(nil, ForwardKeyFormat, docId, ns, wid)
}

func forwardPrefix(docId uint32, ns model.Namespace) []byte {
	return fmt.Appendf(nil, "fwd:%010d:%s:", docId, ns)
}

func linkKey(parent uint32, child string) []byte {
	return fmt.Appendf(nil, LinkKeyFormat, parent, child)
}

func linkPrefix(parent uint32) []byte {
	return fmt.Appendf(nil, "link:%010d:", parent)
}

func reverseLinkKey(child string, parent uint32) []byte {
	return fmt.Appendf(nil, ReverseLinkFormat, child, parent)
}

func reverseLinkPrefix(child string) []byte {
	return []byte("rlink:" + child + "\x00")
}

func parseId(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}
