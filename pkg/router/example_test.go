package router_test

import (
	"fmt"

	"github.com/Sternrassler/storefront/pkg/router"
)

func Example() {
	req := router.NewRequest("/shop/products/42", "/shop/index.php", "GET", nil)
	rt := router.New(req)

	rt.Get(`/products`, func(router.Match) {
		fmt.Println("catalogue")
	})
	rt.Get(`/products/(\d+)`, func(m router.Match) {
		fmt.Println("product", m.Param(0))
	})
	rt.Default(func(uri string) {
		fmt.Println("no route for", uri)
	})

	fmt.Println(rt.Result().Handled())
	// Output:
	// product 42
	// true
}

func ExampleRouter_Sub() {
	req := router.NewRequest("/cart/items/7", "", "DELETE", nil)
	rt := router.New(req)

	rt.Match(`/cart(?:/.*)?`, func(router.Match) {
		cart := rt.Sub()
		cart.Request().Pop()
		cart.Delete(`/items/(\d+)`, func(m router.Match) {
			fmt.Println("remove item", m.Param(0))
		})
	})
	rt.Default(func(uri string) {
		fmt.Println("no route for", uri)
	})
	// Output:
	// remove item 7
}
