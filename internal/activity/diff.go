package activity

import "reflect"

// Diff compares two snapshots and returns only the keys whose values changed,
// keyed the same way on both sides. Keys absent from one snapshot appear with
// a nil counterpart so the log shows the transition.
func Diff(old, new map[string]any) (changedOld, changedNew map[string]any) {
	changedOld = map[string]any{}
	changedNew = map[string]any{}

	for key, oldVal := range old {
		newVal, ok := new[key]
		if !ok {
			changedOld[key] = oldVal
			changedNew[key] = nil
			continue
		}
		if !reflect.DeepEqual(oldVal, newVal) {
			changedOld[key] = oldVal
			changedNew[key] = newVal
		}
	}
	for key, newVal := range new {
		if _, ok := old[key]; !ok {
			changedOld[key] = nil
			changedNew[key] = newVal
		}
	}

	return changedOld, changedNew
}
