package handlers

import (
	"fmt"
	"net/http"
	"os"

	"store-backend/internal/auth"
	"store-backend/internal/cart"
	"store-backend/internal/categories"
	"store-backend/internal/orders"
	"store-backend/internal/products"
	"store-backend/internal/reviews"
	"store-backend/internal/stores/kafka"
	"store-backend/internal/users"
	"store-backend/internal/wishlist"
	"store-backend/middleware"
	"store-backend/pkg/ctxmanage"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	c        cart.Conf
	o        orders.Conf
	p        products.Conf
	cat      categories.Conf
	r        reviews.Conf
	w        wishlist.Conf
	u        users.Conf
	k        *kafka.Conf
	keys     *auth.Keys
	validate *validator.Validate
}

type Confs struct {
	Cart       cart.Conf
	Orders     orders.Conf
	Products   products.Conf
	Categories categories.Conf
	Reviews    reviews.Conf
	Wishlist   wishlist.Conf
	Users      users.Conf
}

func NewHandler(confs Confs, k *kafka.Conf, keys *auth.Keys) *Handler {
	return &Handler{
		c:        confs.Cart,
		o:        confs.Orders,
		p:        confs.Products,
		cat:      confs.Categories,
		r:        confs.Reviews,
		w:        confs.Wishlist,
		u:        confs.Users,
		k:        k,
		keys:     keys,
		validate: validator.New(),
	}
}

func API(endpointPrefix string, keys *auth.Keys, confs Confs, k *kafka.Conf) *gin.Engine {

	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	m, err := middleware.NewMid(keys)
	if err != nil {
		panic(err)
	}

	h := NewHandler(confs, k, keys)
	r.Use(middleware.Logger(), gin.Recovery())
	r.GET("/ping", healthCheck)

	v1 := r.Group(endpointPrefix)

	usersGroup := v1.Group("/users")
	{
		usersGroup.POST("/signup", h.Signup)
		usersGroup.POST("/login", h.Login)
	}

	productsGroup := v1.Group("/products")
	{
		productsGroup.GET("/list", h.ListProducts)
		productsGroup.GET("/view/:id", h.GetProduct)
		productsGroup.GET("/category/:id", h.ListProductsByCategory)
		productsGroup.GET("/availability/:id", h.ProductAvailability)
		productsGroup.GET("/reviews/:id", h.ListProductReviews)

		productsGroup.Use(m.Authentication())
		productsGroup.POST("/create", m.Authorize(h.CreateProduct, auth.RoleSeller, auth.RoleAdmin))
		productsGroup.PUT("/update/:id", m.Authorize(h.UpdateProduct, auth.RoleSeller, auth.RoleAdmin))
		productsGroup.DELETE("/delete/:id", m.Authorize(h.DeleteProduct, auth.RoleSeller, auth.RoleAdmin))
	}

	categoriesGroup := v1.Group("/categories")
	{
		categoriesGroup.GET("/list", h.ListCategories)

		categoriesGroup.Use(m.Authentication())
		categoriesGroup.POST("/create", m.Authorize(h.CreateCategory, auth.RoleAdmin))
		categoriesGroup.PUT("/update/:id", m.Authorize(h.UpdateCategory, auth.RoleAdmin))
		categoriesGroup.DELETE("/delete/:id", m.Authorize(h.DeleteCategory, auth.RoleAdmin))
	}

	reviewsGroup := v1.Group("/reviews")
	{
		reviewsGroup.GET("/list", h.ListReviews)

		reviewsGroup.Use(m.Authentication())
		reviewsGroup.POST("/create", m.Authorize(h.CreateReview, auth.RoleBuyer, auth.RoleSeller, auth.RoleAdmin))
		reviewsGroup.DELETE("/delete/:id", m.Authorize(h.DeleteReview, auth.RoleAdmin))
	}

	cartGroup := v1.Group("/cart")
	{
		cartGroup.Use(m.Authentication())
		cartGroup.GET("/items", h.GetCart)
		cartGroup.GET("/summary", h.CartSummary)
		cartGroup.POST("/add-item", h.AddToCart)
		cartGroup.PATCH("/update-item/:id", h.UpdateCartItem)
		cartGroup.DELETE("/remove-item/:id", h.RemoveCartItem)
		cartGroup.DELETE("/clear", h.ClearCart)
	}

	wishlistGroup := v1.Group("/wishlist")
	{
		wishlistGroup.Use(m.Authentication())
		wishlistGroup.GET("/items", h.GetWishlist)
		wishlistGroup.GET("/count", h.WishlistCount)
		wishlistGroup.POST("/add-item", h.AddToWishlist)
		wishlistGroup.DELETE("/remove-item/:id", h.RemoveWishlistItem)
		wishlistGroup.DELETE("/clear", h.ClearWishlist)
	}

	ordersGroup := v1.Group("/orders")
	{
		ordersGroup.Use(m.Authentication())
		ordersGroup.POST("/checkout", h.Checkout)
		ordersGroup.GET("/list", h.ListOrders)
		ordersGroup.GET("/view/:id", h.GetOrder)
	}

	return r
}

func healthCheck(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	fmt.Println("healthCheck handler ", traceId)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
