package packages

import (
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/samber/lo"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
)

// GetQueryFields returns the package queries to be mounted in the root schema.
func GetQueryFields(set *registry.Set, packageType *graphql.Object) graphql.Fields {
	return graphql.Fields{
		"package": &graphql.Field{
			Type: packageType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if pkg := set.Packages.Get(p.Args["id"].(string)); pkg != nil {
					return pkg, nil
				}
				return nil, nil
			},
		},
		"packages": &graphql.Field{
			Type: graphql.NewList(packageType),
			Args: graphql.FieldConfigArgument{
				"name": &graphql.ArgumentConfig{Type: graphql.String},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				name, _ := p.Args["name"].(string)
				return ResolvePackages(set, name), nil
			},
		},
	}
}

// ResolvePackages lists the packages whose name contains name, all of them when empty.
func ResolvePackages(set *registry.Set, name string) []*model.Package {
	return lo.Filter(set.Packages.List(), func(pkg *model.Package, _ int) bool {
		return name == "" || strings.Contains(pkg.Name, name)
	})
}

// VulnerabilitiesOf lists the vulnerabilities affecting packageID.
func VulnerabilitiesOf(set *registry.Set, packageID string) []*model.Vulnerability {
	return lo.Filter(set.Vulnerabilities.List(), func(v *model.Vulnerability, _ int) bool {
		return lo.Contains(v.Packages, packageID)
	})
}
