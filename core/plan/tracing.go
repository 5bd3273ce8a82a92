// Copyright 2026 The QueryCore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plan

import (
	opentracing "github.com/opentracing/opentracing-go"

	"github.com/tupledb/querycore/core"
)

// traced wraps s with span, finishing span when the scanner closes —
// the span covers the operator's whole row-iterator lifetime rather
// than any single row, mirroring how the source tracks a RowIter's
// span.
func traced(span opentracing.Span, s core.Scanner) core.Scanner {
	return &spanScanner{Scanner: s, span: span}
}

type spanScanner struct {
	core.Scanner
	span opentracing.Span
}

func (s *spanScanner) Close() error {
	err := s.Scanner.Close()
	s.span.Finish()
	return err
}
