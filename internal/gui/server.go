// A very simple gin HTTP server for inspecting the latest simulation
// result. The gui sends an empty struct over the bridge and the simulation
// loop answers with the result value, which is served as JSON.
package gui

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ahellier/flexalloc/internal/model"
	"github.com/ahellier/flexalloc/sim"
	"github.com/ahellier/flexalloc/statistics"
)

var resultRequestStream chan<- struct{}
var resultStream <-chan *model.Result
var router *gin.Engine

func registerRoutes() {
	router.GET("/result", func(ctx *gin.Context) {
		resultRequestStream <- struct{}{}
		ctx.JSON(http.StatusOK, <-resultStream)
	})

	router.GET("/statistics", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"content": statistics.Display(),
		})
	})
}

func SetUp(bridge sim.Bridge) {
	resultRequestStream = bridge.ResultRequestStream
	resultStream = bridge.ResultStream

	router = gin.Default()
	router.Use(cors.Default())

	registerRoutes()
}

func Run() {
	router.Run(":8080")
}
