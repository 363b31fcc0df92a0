package databases

import "go.mongodb.org/mongo-driver/mongo/options"

type mongoPaginate struct {
	limit int64
	page  int64
}

// newMongoPaginate takes a 1-based page; anything below 1 is treated as the first page
func newMongoPaginate(limit, page int) *mongoPaginate {
	if page < 1 {
		page = 1
	}
	return &mongoPaginate{
		limit: int64(limit),
		page:  int64(page),
	}
}

func (mp *mongoPaginate) apply(opts *options.FindOptions) *options.FindOptions {
	skip := mp.page*mp.limit - mp.limit
	return opts.SetLimit(mp.limit).SetSkip(skip)
}
