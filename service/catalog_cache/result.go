package catalog_cache

// ResultKind 快照查询结果的类别
type ResultKind int

const (
	// KindUnfetched 目录从未成功加载，无法判断是否存在
	KindUnfetched ResultKind = iota
	// KindEmpty 目录已加载但不包含所查询的记录
	KindEmpty
	// KindValue 找到记录
	KindValue
)

func (k ResultKind) String() string {
	switch k {
	case KindUnfetched:
		return "unfetched"
	case KindEmpty:
		return "empty"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

// Result 快照查询结果：Unfetched | Empty | Value
type Result[T any] struct {
	kind  ResultKind
	value T
}

// Unfetched 构造未加载结果
func Unfetched[T any]() Result[T] {
	return Result[T]{kind: KindUnfetched}
}

// Empty 构造未找到结果
func Empty[T any]() Result[T] {
	return Result[T]{kind: KindEmpty}
}

// Value 构造有值结果
func Value[T any](v T) Result[T] {
	return Result[T]{kind: KindValue, value: v}
}

// Kind 返回结果类别
func (r Result[T]) Kind() ResultKind {
	return r.kind
}

// Get 返回结果值，仅当类别为 KindValue 时 ok 为 true
func (r Result[T]) Get() (T, bool) {
	return r.value, r.kind == KindValue
}

// IsUnfetched 目录是否尚未加载
func (r Result[T]) IsUnfetched() bool {
	return r.kind == KindUnfetched
}

// HasValue 是否找到记录
func (r Result[T]) HasValue() bool {
	return r.kind == KindValue
}

// MapOrElse 按结果类别折叠为单一值
func MapOrElse[T, U any](r Result[T], unfetched func() U, empty func() U, value func(T) U) U {
	switch r.kind {
	case KindValue:
		return value(r.value)
	case KindEmpty:
		return empty()
	default:
		return unfetched()
	}
}

// FromLookup 根据快照是否存在及查找结果构造 Result
func FromLookup[T any](loaded bool, v T, found bool) Result[T] {
	if !loaded {
		return Unfetched[T]()
	}
	if !found {
		return Empty[T]()
	}
	return Value(v)
}
