package model

// All returns every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&Brand{},
		&WatchModel{},
		&Seller{},
		&SellerAddress{},
		&Profile{},
		&Listing{},
		&ListingImage{},
		&ListingDocument{},
	}
}
