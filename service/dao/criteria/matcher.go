package criteria

import (
	"github.com/viant/reconciler/service/dao"
)

// MatchString reports whether value satisfies the named parameter. A missing
// parameter matches everything; a []string parameter matches any element.
func MatchString(name, value string, parameters []*dao.Parameter) bool {
	parameter := dao.Lookup(name, parameters)
	if parameter == nil {
		return true
	}
	switch actual := parameter.Value.(type) {
	case string:
		return value == actual
	case []string:
		for _, candidate := range actual {
			if value == candidate {
				return true
			}
		}
		return false
	}
	return true
}
