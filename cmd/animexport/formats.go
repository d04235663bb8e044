package main

import (
	"fmt"
	"io"
	"os"

	"github.com/gogpu/animexport/export"
)

type FormatsCmd struct{}

func (c *FormatsCmd) Run() error {
	return listFormats(os.Stdout)
}

func listFormats(w io.Writer) error {
	for _, f := range export.Formats() {
		if _, err := fmt.Fprintln(w, f); err != nil {
			return err
		}
	}
	return nil
}
