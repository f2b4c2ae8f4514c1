package repository

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate")
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInUse reports a delete blocked by rows that still reference the target.
	ErrInUse             = errors.New("still referenced")
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
	MaxPage      = 100000
)

type FieldKind int

const (
	KindText FieldKind = iota
	KindNumber
	KindInt
	KindBool
)

// Field maps a public query-string name to a column.
type Field struct {
	Column string
	Kind   FieldKind
}

type Filter struct {
	Column string
	Op     string
	Value  any
}

// ListQuery is the parsed form of ?field[op]=v&sort=-a,b&page=&limit=.
type ListQuery struct {
	Filters []Filter
	Sort    []string
	Limit   int
	Offset  int
}

var ops = map[string]string{
	"":    "=",
	"eq":  "=",
	"ne":  "<>",
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
}

var whereClause = regexp.MustCompile(`(?i)\bwhere\b`)

var reserved = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

// ParseListQuery translates query-string parameters into a ListQuery, using
// fields as the whitelist for filtering and sorting.
func ParseListQuery(values url.Values, fields map[string]Field) (ListQuery, error) {
	q := ListQuery{Limit: DefaultLimit}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		vals := values[key]
		if reserved[key] || len(vals) == 0 {
			continue
		}
		name, op := key, ""
		if i := strings.IndexByte(key, '['); i > 0 && strings.HasSuffix(key, "]") {
			name, op = key[:i], key[i+1:len(key)-1]
		}
		f, ok := fields[name]
		if !ok {
			continue
		}
		sqlOp, ok := ops[op]
		if !ok {
			return q, fmt.Errorf("unsupported operator %q on %s", op, name)
		}
		v, err := convert(vals[0], f.Kind)
		if err != nil {
			return q, fmt.Errorf("invalid value for %s: %w", name, err)
		}
		q.Filters = append(q.Filters, Filter{Column: f.Column, Op: sqlOp, Value: v})
	}

	if s := values.Get("sort"); s != "" {
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			dir := "ASC"
			if strings.HasPrefix(part, "-") {
				dir, part = "DESC", part[1:]
			}
			f, ok := fields[part]
			if !ok {
				return q, fmt.Errorf("cannot sort by %q", part)
			}
			q.Sort = append(q.Sort, f.Column+" "+dir)
		}
	}

	page := 1
	if p := values.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > MaxPage {
			return q, fmt.Errorf("page must be an integer between 1 and %d", MaxPage)
		}
		page = n
	}
	if l := values.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			return q, errors.New("limit must be a positive integer")
		}
		q.Limit = min(n, MaxLimit)
	}
	q.Offset = (page - 1) * q.Limit
	return q, nil
}

func convert(raw string, kind FieldKind) (any, error) {
	switch kind {
	case KindNumber:
		return strconv.ParseFloat(raw, 64)
	case KindInt:
		return strconv.ParseInt(raw, 10, 64)
	case KindBool:
		return strconv.ParseBool(raw)
	}
	return raw, nil
}

// Apply appends WHERE/ORDER BY/LIMIT/OFFSET to base. base may already carry a
// WHERE clause and args; placeholders continue from len(args).
func (q ListQuery) Apply(base string, args []any, defaultSort string) (string, []any) {
	var sb strings.Builder
	sb.WriteString(base)

	hasWhere := whereClause.MatchString(base)
	for _, f := range q.Filters {
		if hasWhere {
			sb.WriteString(" AND ")
		} else {
			sb.WriteString(" WHERE ")
			hasWhere = true
		}
		args = append(args, f.Value)
		sb.WriteString(fmt.Sprintf("%s %s $%d", f.Column, f.Op, len(args)))
	}

	sb.WriteString(" ORDER BY ")
	if len(q.Sort) > 0 {
		sb.WriteString(strings.Join(q.Sort, ", "))
	} else {
		sb.WriteString(defaultSort)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	args = append(args, limit, q.Offset)
	sb.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)))
	return sb.String(), args
}
