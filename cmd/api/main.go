package main

import (
	"go.uber.org/fx"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
