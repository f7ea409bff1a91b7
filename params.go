package veneer

// Params carries the parsed property values of a filter or shader
// declaration, keyed by property name.
type Params map[string]any

// Param returns the value stored under key if it is present and has
// type T, and def otherwise.
func Param[T any](p Params, key string, def T) T {
	if v, ok := p[key]; ok {
		if tv, ok := v.(T); ok {
			return tv
		}
	}
	return def
}
