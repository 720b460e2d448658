package api

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID is a backend identifier. The backend emits a mix of JSON numbers and
// strings for identifiers, so ID accepts both and always encodes as a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Int returns the numeric form of the identifier, or 0 when it is not numeric.
func (id ID) Int() int64 {
	n, _ := strconv.ParseInt(string(id), 10, 64)
	return n
}

// User is the authenticated customer profile.
type User struct {
	ID        ID     `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Rating is the aggregate product rating.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product is a catalog entry. Category is kept raw because the backend sends
// either a name or a Category object.
type Product struct {
	ID            ID              `json:"id"`
	Title         string          `json:"title"`
	Price         float64         `json:"price"`
	Description   string          `json:"description,omitempty"`
	Category      json.RawMessage `json:"category,omitempty"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	Rating        *Rating         `json:"rating,omitempty"`
	AverageRating float64         `json:"averageRating,omitempty"`
	ReviewCount   int             `json:"reviewCount,omitempty"`
}

// CategoryName returns the product category as a display string.
func (p Product) CategoryName() string {
	if len(p.Category) == 0 {
		return ""
	}
	var name string
	if err := json.Unmarshal(p.Category, &name); err == nil {
		return name
	}
	var c Category
	if err := json.Unmarshal(p.Category, &c); err == nil {
		return c.Name
	}
	return ""
}

// Variant is a purchasable option of a product. Price, when set, overrides the product price.
type Variant struct {
	ID        ID       `json:"id"`
	ProductID ID       `json:"productId"`
	Name      string   `json:"name"`
	Value     string   `json:"value"`
	Price     *float64 `json:"price,omitempty"`
	Stock     int      `json:"stock,omitempty"`
	SKU       string   `json:"sku,omitempty"`
}

// CartItem is one line of the cart. ID is assigned by the server.
type CartItem struct {
	ID        ID       `json:"id"`
	ProductID ID       `json:"productId"`
	Quantity  int      `json:"quantity"`
	Product   Product  `json:"product"`
	VariantID ID       `json:"variantId,omitempty"`
	Variant   *Variant `json:"variant,omitempty"`
}

// Category groups products.
type Category struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Image        string `json:"image,omitempty"`
	ProductCount int    `json:"productCount,omitempty"`
}

// Review is a customer review of a product.
type Review struct {
	ID        ID     `json:"id"`
	ProductID ID     `json:"productId"`
	UserID    ID     `json:"userId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	UserName  string `json:"userName,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Address is a shipping address of the current user.
type Address struct {
	ID      ID     `json:"id,omitempty"`
	Label   string `json:"label,omitempty"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	Postal  string `json:"postal"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
}

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// Order is a placed order.
type Order struct {
	ID              ID          `json:"id"`
	UserID          ID          `json:"userId"`
	Items           []CartItem  `json:"items"`
	TotalPrice      float64     `json:"totalPrice"`
	Status          OrderStatus `json:"status"`
	ShippingAddress Address     `json:"shippingAddress"`
	PaymentMethod   string      `json:"paymentMethod"`
	CreatedAt       string      `json:"createdAt,omitempty"`
}

// CreateOrderRequest is the checkout payload.
type CreateOrderRequest struct {
	Items           []CartItem `json:"items"`
	ShippingAddress Address    `json:"shippingAddress"`
	PaymentMethod   string     `json:"paymentMethod"`
}

// AuthResponse is returned by login and register.
// ExpiresIn is optional and expressed in seconds.
type AuthResponse struct {
	Token     string `json:"token"`
	User      *User  `json:"user"`
	ExpiresIn int64  `json:"expiresIn,omitempty"`
}

// GuestResponse is returned when a guest identity is provisioned.
type GuestResponse struct {
	Token   string `json:"token"`
	GuestID ID     `json:"guestId"`
}
