package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractImports(t *testing.T) {
	tests := []struct {
		name     string
		language string
		lines    []string
		want     []string
	}{
		{
			name:     "python import forms",
			language: "python",
			lines: []string{
				"import os, sys",
				"import os.path as osp",
				"from collections.abc import Mapping",
				"    from typing import Optional",
				"from . import sibling",
				"from .models import User",
				"x = 'import nothing'",
			},
			want: []string{"os", "sys", "collections", "typing"},
		},
		{
			name:     "javascript forms",
			language: "javascript",
			lines: []string{
				"import React, { useState } from 'react';",
				`import "./styles.css";`,
				`import 'whatwg-fetch';`,
				`const _ = require("lodash/fp");`,
				`const mod = await import('@scope/pkg/sub');`,
				`import helper from "../helper";`,
				`export * from 'react';`,
			},
			want: []string{"react", "whatwg-fetch", "lodash", "@scope/pkg"},
		},
		{
			name:     "typescript type import",
			language: "typescript",
			lines:    []string{`import type { NextPage } from "next/types";`},
			want:     []string{"next"},
		},
		{
			name:     "react native scoped",
			language: "react-native",
			lines:    []string{`import { NavigationContainer } from '@react-navigation/native';`},
			want:     []string{"@react-navigation/native"},
		},
		{
			name:     "go forms",
			language: "go",
			lines: []string{
				`import "fmt"`,
				`import (`,
				`	"context"`,
				`	stderrors "errors"`,
				`	_ "embed"`,
				`	"github.com/spf13/cobra"`,
				`)`,
				`	name: "value",`,
			},
			want: []string{"fmt", "context", "errors", "embed", "github.com/spf13/cobra"},
		},
		{
			name:     "unknown language",
			language: "rust",
			lines:    []string{"use std::io;"},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractImports(tt.language, tt.lines))
		})
	}
}

func TestPackageName(t *testing.T) {
	tests := map[string]string{
		"react":           "react",
		"lodash/fp":       "lodash",
		"@scope/pkg":      "@scope/pkg",
		"@scope/pkg/deep": "@scope/pkg",
		"@scope":          "@scope",
		"./local":         "",
		"../up":           "",
		"/abs":            "",
		"":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, packageName(in), in)
	}
}
