// Copyright 2026 Esteban Alvarez. All Rights Reserved.
//
// Created: August 2026
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

package core

import (
	"fmt"
	"net"
	"path"
	"regexp"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"statagg/internal/daemon/telemetry"
)

// Router applies a configured rule chain to incoming lines before they
// reach the processor. Each rule is written "condition => target":
//
//	conditions: any
//	            metric_type <t> [<t>...]
//	            path_like <glob>
//	            not <condition>
//	targets:    drop
//	            rewrite <regexp> <replacement> [dup]
//	            set_metric_type <t> [dup]
//	            redirect <host:port> [dup]
//
// Targets with the dup flag keep the original line flowing alongside their
// output; without it the target consumes the line.
type Router struct {
	rules []rule

	mu        sync.Mutex
	redirects map[string]net.Conn
}

type rule struct {
	cond   condition
	target target
}

type condition interface {
	matches(key, token string) bool
}

type target interface {
	apply(r *Router, line, key, token string) []string
}

// NewRouter parses the rule chain. An empty rule list yields a router that
// passes every line through untouched.
func NewRouter(ruleSpecs []string) (*Router, error) {
	r := &Router{redirects: make(map[string]net.Conn)}
	for _, spec := range ruleSpecs {
		parsed, err := parseRule(spec)
		if err != nil {
			return nil, err
		}
		r.rules = append(r.rules, parsed)
	}
	return r, nil
}

// Route runs line through the rule chain and returns the lines to process
// locally. Redirect targets forward as a side effect.
func (r *Router) Route(line string) []string {
	lines := []string{line}
	for _, ru := range r.rules {
		var next []string
		for _, l := range lines {
			key, token, ok := splitLineMeta(l)
			if ok && ru.cond.matches(key, token) {
				next = append(next, ru.target.apply(r, l, key, token)...)
			} else {
				next = append(next, l)
			}
		}
		lines = next
	}
	return lines
}

// Close shuts down any redirect connections.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for addr, conn := range r.redirects {
		_ = conn.Close()
		delete(r.redirects, addr)
	}
}

// splitLineMeta extracts the key and type token of a line without fully
// parsing it. Unparseable lines match no condition and flow on to the
// processor, which counts them as malformed.
func splitLineMeta(line string) (key, token string, ok bool) {
	colon := strings.IndexByte(line, ':')
	if colon <= 0 {
		return "", "", false
	}
	parts := strings.Split(line[colon+1:], "|")
	if len(parts) < 2 {
		return "", "", false
	}
	return line[:colon], parts[1], true
}

func parseRule(spec string) (rule, error) {
	sides := strings.SplitN(spec, "=>", 2)
	if len(sides) != 2 {
		return rule{}, fmt.Errorf("core: rule %q has no '=>'", spec)
	}
	cond, err := parseCondition(strings.Fields(sides[0]))
	if err != nil {
		return rule{}, fmt.Errorf("core: rule %q: %w", spec, err)
	}
	tgt, err := parseTarget(strings.Fields(sides[1]))
	if err != nil {
		return rule{}, fmt.Errorf("core: rule %q: %w", spec, err)
	}
	return rule{cond: cond, target: tgt}, nil
}

func parseCondition(fields []string) (condition, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty condition")
	}
	switch fields[0] {
	case "any":
		return anyCondition{}, nil
	case "metric_type":
		if len(fields) < 2 {
			return nil, fmt.Errorf("metric_type needs at least one type")
		}
		types := make(map[string]struct{}, len(fields)-1)
		for _, t := range fields[1:] {
			if _, ok := KindFromToken(t); !ok {
				return nil, fmt.Errorf("unknown metric type %q", t)
			}
			types[t] = struct{}{}
		}
		return metricTypeCondition{types: types}, nil
	case "path_like":
		if len(fields) != 2 {
			return nil, fmt.Errorf("path_like needs exactly one glob")
		}
		if _, err := path.Match(fields[1], ""); err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", fields[1], err)
		}
		return pathLikeCondition{glob: fields[1]}, nil
	case "not":
		inner, err := parseCondition(fields[1:])
		if err != nil {
			return nil, err
		}
		return notCondition{inner: inner}, nil
	}
	return nil, fmt.Errorf("unknown condition %q", fields[0])
}

func parseTarget(fields []string) (target, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty target")
	}
	dup := false
	if fields[len(fields)-1] == "dup" {
		dup = true
		fields = fields[:len(fields)-1]
	}
	switch fields[0] {
	case "drop":
		if len(fields) != 1 || dup {
			return nil, fmt.Errorf("drop takes no arguments")
		}
		return dropTarget{}, nil
	case "rewrite":
		if len(fields) != 3 {
			return nil, fmt.Errorf("rewrite needs a pattern and a replacement")
		}
		re, err := regexp.Compile(fields[1])
		if err != nil {
			return nil, fmt.Errorf("bad rewrite pattern: %w", err)
		}
		return rewriteTarget{re: re, repl: fields[2], dup: dup}, nil
	case "set_metric_type":
		if len(fields) != 2 {
			return nil, fmt.Errorf("set_metric_type needs exactly one type")
		}
		if _, ok := KindFromToken(fields[1]); !ok {
			return nil, fmt.Errorf("unknown metric type %q", fields[1])
		}
		return setTypeTarget{token: fields[1], dup: dup}, nil
	case "redirect":
		if len(fields) != 2 {
			return nil, fmt.Errorf("redirect needs exactly one host:port")
		}
		return redirectTarget{addr: fields[1], dup: dup}, nil
	}
	return nil, fmt.Errorf("unknown target %q", fields[0])
}

type anyCondition struct{}

func (anyCondition) matches(string, string) bool { return true }

type metricTypeCondition struct{ types map[string]struct{} }

func (c metricTypeCondition) matches(_, token string) bool {
	_, ok := c.types[token]
	return ok
}

type pathLikeCondition struct{ glob string }

func (c pathLikeCondition) matches(key, _ string) bool {
	ok, _ := path.Match(c.glob, key)
	return ok
}

type notCondition struct{ inner condition }

func (c notCondition) matches(key, token string) bool {
	return !c.inner.matches(key, token)
}

type dropTarget struct{}

func (dropTarget) apply(*Router, string, string, string) []string {
	telemetry.ObserveDropped()
	return nil
}

type rewriteTarget struct {
	re   *regexp.Regexp
	repl string
	dup  bool
}

func (t rewriteTarget) apply(_ *Router, line, key, _ string) []string {
	rewritten := t.re.ReplaceAllString(key, t.repl) + line[len(key):]
	if t.dup && rewritten != line {
		return []string{rewritten, line}
	}
	return []string{rewritten}
}

type setTypeTarget struct {
	token string
	dup   bool
}

func (t setTypeTarget) apply(_ *Router, line, key, token string) []string {
	// The type token is the second pipe field; value may legally contain
	// no pipes, so rebuilding from the split is safe.
	colon := len(key)
	parts := strings.Split(line[colon+1:], "|")
	parts[1] = t.token
	retyped := key + ":" + strings.Join(parts, "|")
	if t.dup && retyped != line {
		return []string{retyped, line}
	}
	return []string{retyped}
}

type redirectTarget struct {
	addr string
	dup  bool
}

func (t redirectTarget) apply(r *Router, line, _, _ string) []string {
	if err := r.forward(t.addr, line); err != nil {
		log.WithField("addr", t.addr).WithError(err).Warn("redirect failed")
	}
	if t.dup {
		return []string{line}
	}
	return nil
}

// forward sends line over a lazily dialed UDP connection.
func (r *Router) forward(addr, line string) error {
	r.mu.Lock()
	conn, ok := r.redirects[addr]
	if !ok {
		var err error
		conn, err = net.Dial("udp", addr)
		if err != nil {
			r.mu.Unlock()
			return fmt.Errorf("core: dial redirect %s: %w", addr, err)
		}
		r.redirects[addr] = conn
	}
	r.mu.Unlock()

	if _, err := conn.Write([]byte(line)); err != nil {
		return fmt.Errorf("core: redirect to %s: %w", addr, err)
	}
	return nil
}
