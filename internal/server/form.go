package server

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"

	"github.com/gridquery/gridquery/gridquery"
)

var (
	orderKey  = regexp.MustCompile(`^order\[(\d+)\]\[(column|dir|name)\]$`)
	columnKey = regexp.MustCompile(`^columns\[(\d+)\]\[(data|name|searchable|orderable|search\]\[value|search\]\[regex)\]$`)
)

// ParseForm reads a request from DataTables form parameters
// (search[value], order[0][column], columns[0][data], ...). Unknown keys are
// ignored.
func ParseForm(values url.Values) (*gridquery.Request, error) {
	req := &gridquery.Request{}
	var err error
	if req.Draw, err = formInt(values, "draw"); err != nil {
		return req, err
	}
	if req.Start, err = formInt(values, "start"); err != nil {
		return req, err
	}
	if req.Length, err = formInt(values, "length"); err != nil {
		return req, err
	}
	req.ContinuationToken = values.Get("continuationToken")
	if _, ok := values["search[value]"]; ok {
		req.Search = &gridquery.Search{Value: values.Get("search[value]"), Regex: formBool(values.Get("search[regex]"))}
	}

	orders := map[int]*gridquery.Order{}
	columns := map[int]*gridquery.Column{}
	for key := range values {
		if m := orderKey.FindStringSubmatch(key); m != nil {
			i, err := formIndex(m[1])
			if err != nil {
				return req, err
			}
			o := orders[i]
			if o == nil {
				o = &gridquery.Order{}
				orders[i] = o
			}
			v := values.Get(key)
			switch m[2] {
			case "column":
				if o.Column, err = strconv.Atoi(v); err != nil {
					return req, fmt.Errorf("%s: %w", key, err)
				}
			case "dir":
				o.Dir = v
			case "name":
				o.Name = v
			}
			continue
		}
		if m := columnKey.FindStringSubmatch(key); m != nil {
			i, err := formIndex(m[1])
			if err != nil {
				return req, err
			}
			c := columns[i]
			if c == nil {
				c = &gridquery.Column{}
				columns[i] = c
			}
			v := values.Get(key)
			switch m[2] {
			case "data":
				c.Data = v
			case "name":
				c.Name = v
			case "searchable":
				c.Searchable = formBool(v)
			case "orderable":
				c.Orderable = formBool(v)
			case "search][value":
				if c.Search == nil {
					c.Search = &gridquery.Search{}
				}
				c.Search.Value = v
			case "search][regex":
				if c.Search == nil {
					c.Search = &gridquery.Search{}
				}
				c.Search.Regex = formBool(v)
			}
		}
	}

	// Column indexes define the index space of order entries, so gaps are
	// kept as unbound columns.
	if n := maxIndex(columns) + 1; n > 0 {
		if n > gridquery.MaxColumns {
			return req, fmt.Errorf("too many columns: %d", n)
		}
		req.Columns = make([]gridquery.Column, n)
		for i, c := range columns {
			req.Columns[i] = *c
		}
	}
	idx := make([]int, 0, len(orders))
	for i := range orders {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		req.Order = append(req.Order, *orders[i])
	}
	return req, nil
}

func formInt(values url.Values, key string) (int, error) {
	v := values.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func formIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i >= gridquery.MaxColumns {
		return 0, fmt.Errorf("index %s out of range", s)
	}
	return i, nil
}

func formBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func maxIndex[V any](m map[int]V) int {
	n := -1
	for i := range m {
		n = max(n, i)
	}
	return n
}
