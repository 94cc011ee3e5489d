package utils

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// ToStringSlice filters a []any down to its string members.
func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0)
	for _, v := range slice {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}
