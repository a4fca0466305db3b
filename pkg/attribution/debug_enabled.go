//go:build stackscope_debug

package attribution

import (
	"fmt"

	"github.com/grafana/stackscope/pkg/model"
)

const debug = true

func assertTopological(s int, prefix model.StackIndex) {
	if prefix < 0 || int(prefix) >= s {
		panic(fmt.Sprintf("stack table is not topologically ordered: stack %d has prefix %d", s, prefix))
	}
}
