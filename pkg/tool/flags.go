// Copyright 2020 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"errors"
	"fmt"
	"strings"
)

// CfgsFlag is a comma-separated list of files given to one flag.
type CfgsFlag []string

func (cfgs *CfgsFlag) String() string {
	return fmt.Sprint(*cfgs)
}

func (cfgs *CfgsFlag) Set(value string) error {
	if len(*cfgs) > 0 {
		return errors.New("configs flag were already set")
	}
	for _, cfg := range strings.Split(value, ",") {
		if cfg = strings.TrimSpace(cfg); cfg != "" {
			*cfgs = append(*cfgs, cfg)
		}
	}
	if len(*cfgs) == 0 {
		return errors.New("empty configs list")
	}
	return nil
}
