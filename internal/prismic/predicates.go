package prismic

import (
	"strconv"
	"strings"
)

// Predicate is one clause of a documents search query.
type Predicate string

// At matches documents whose field at path equals value.
func At(path, value string) Predicate {
	return Predicate("[at(" + path + ", " + strconv.Quote(value) + ")]")
}

// DocumentType matches documents of the given custom type.
func DocumentType(docType string) Predicate {
	return At("document.type", docType)
}

// DocumentID matches a single document id.
func DocumentID(id string) Predicate {
	return At("document.id", id)
}

// UID matches the document of docType with the given uid.
func UID(docType, uid string) Predicate {
	return At("my."+docType+".uid", uid)
}

func encodeQuery(predicates []Predicate) string {
	if len(predicates) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('[')
	for _, p := range predicates {
		b.WriteString(string(p))
	}
	b.WriteByte(']')
	return b.String()
}
