package vaultflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	errFragmentSyntax  = errors.New("malformed signature")
	errFragmentTuple   = errors.New("tuple parameters are not supported")
	errFragmentDupName = errors.New("duplicate method name")
)

// ParseFragments parses human-readable function signatures into an ABI.
//
//	function approve(address spender, uint256 amount) external returns (bool)
//	function mintToken(address _to,uint256 _amount) public
//	balanceOf(address) view returns (uint256)
//
// The "function" keyword and parameter names are optional. Only elementary
// and array types are accepted.
func ParseFragments(fragments ...string) (abi.ABI, error) {
	parsed := abi.ABI{Methods: make(map[string]abi.Method, len(fragments))}
	for _, fragment := range fragments {
		method, err := parseFragment(fragment)
		if err != nil {
			return abi.ABI{}, &FragmentError{Fragment: fragment, Err: err}
		}
		if _, exists := parsed.Methods[method.Name]; exists {
			return abi.ABI{}, &FragmentError{Fragment: fragment, Err: errFragmentDupName}
		}
		parsed.Methods[method.Name] = method
	}
	return parsed, nil
}

// MustParseFragments is like ParseFragments but panics on error.
func MustParseFragments(fragments ...string) abi.ABI {
	parsed, err := ParseFragments(fragments...)
	if err != nil {
		panic(err)
	}
	return parsed
}

func parseFragment(fragment string) (abi.Method, error) {
	s := strings.TrimSpace(fragment)
	s = strings.TrimPrefix(s, "function ")
	s = strings.TrimSpace(s)

	open := strings.IndexByte(s, '(')
	if open <= 0 {
		return abi.Method{}, errFragmentSyntax
	}
	name := strings.TrimSpace(s[:open])
	if !isIdentifier(name) {
		return abi.Method{}, fmt.Errorf("%w: bad name %q", errFragmentSyntax, name)
	}

	inputList, rest, err := splitParens(s[open:])
	if err != nil {
		return abi.Method{}, err
	}
	inputs, err := parseParams(inputList)
	if err != nil {
		return abi.Method{}, err
	}

	mutability := "nonpayable"
	var outputs abi.Arguments
	fields := strings.Fields(rest)
	for i := 0; i < len(fields); i++ {
		word := fields[i]
		switch {
		case word == "view" || word == "pure" || word == "payable" || word == "nonpayable":
			mutability = word
		case word == "external" || word == "public":
		case strings.HasPrefix(word, "returns"):
			tail := strings.TrimSpace(strings.TrimPrefix(strings.Join(fields[i:], " "), "returns"))
			outputList, after, err := splitParens(tail)
			if err != nil {
				return abi.Method{}, err
			}
			if strings.TrimSpace(after) != "" {
				return abi.Method{}, fmt.Errorf("%w: trailing %q", errFragmentSyntax, after)
			}
			if outputs, err = parseParams(outputList); err != nil {
				return abi.Method{}, err
			}
			i = len(fields)
		default:
			return abi.Method{}, fmt.Errorf("%w: unknown modifier %q", errFragmentSyntax, word)
		}
	}

	isConst := mutability == "view" || mutability == "pure"
	return abi.NewMethod(name, name, abi.Function, mutability, isConst, mutability == "payable", inputs, outputs), nil
}

// splitParens expects s to start with '(' and returns the enclosed text and
// whatever follows the matching ')'.
func splitParens(s string) (string, string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") {
		return "", "", fmt.Errorf("%w: expected '('", errFragmentSyntax)
	}
	end := strings.IndexByte(s, ')')
	if end < 0 {
		return "", "", fmt.Errorf("%w: missing ')'", errFragmentSyntax)
	}
	inner := s[1:end]
	if strings.ContainsRune(inner, '(') {
		return "", "", errFragmentTuple
	}
	return inner, s[end+1:], nil
}

func parseParams(list string) (abi.Arguments, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}
	parts := strings.Split(list, ",")
	args := make(abi.Arguments, 0, len(parts))
	for _, part := range parts {
		words := strings.Fields(part)
		if len(words) == 0 {
			return nil, fmt.Errorf("%w: empty parameter", errFragmentSyntax)
		}
		typ, err := abi.NewType(words[0], "", nil)
		if err != nil {
			return nil, err
		}
		if typ.T == abi.TupleTy {
			return nil, errFragmentTuple
		}
		var name string
		for _, w := range words[1:] {
			if w == "memory" || w == "calldata" || w == "indexed" {
				continue
			}
			name = w
		}
		args = append(args, abi.Argument{Name: name, Type: typ})
	}
	return args, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
