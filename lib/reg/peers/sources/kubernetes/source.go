package kubernetes

import (
	"context"
	"net"
	"strconv"

	"github.com/caddyserver/caddy/v2"
	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/informers"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/cache"

	"gfx.cafe/gfx/regat/lib/k8s"
	"gfx.cafe/gfx/regat/lib/reg/peers"
)

func init() {
	caddy.RegisterModule((*Source)(nil))
}

// Source resolves peer URLs from the endpoints of a Kubernetes service and
// nudges the manager whenever the endpoints object changes. The node must
// run in-cluster.
type Source struct {
	// Namespace scopes the watch; its labels select endpoints objects when
	// no service name is given.
	Namespace k8s.NamespaceMatcher `json:"namespace,omitempty"`

	// Service names the service whose endpoints are the peers. When empty,
	// every endpoints object matching the label selector contributes.
	Service string `json:"service,omitempty"`

	// PortName selects a named endpoint port. Empty takes the first port of
	// each subset.
	PortName string `json:"port_name,omitempty"`

	// Scheme for built URLs. Defaults to http.
	Scheme string `json:"scheme,omitempty"`

	clientset kubernetes.Interface
	informer  cache.SharedIndexInformer

	updates chan []string
	done    chan struct{}

	log *zap.Logger
}

func (T *Source) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID: "regat.peers.sources.kubernetes",
		New: func() caddy.Module {
			return new(Source)
		},
	}
}

func (T *Source) Provision(ctx caddy.Context) error {
	T.log = ctx.Logger()
	if T.Scheme == "" {
		T.Scheme = "http"
	}

	restConfig, err := rest.InClusterConfig()
	if err != nil {
		return err
	}
	T.clientset, err = kubernetes.NewForConfig(restConfig)
	if err != nil {
		return err
	}

	options := []informers.SharedInformerOption{
		informers.WithNamespace(T.Namespace.Namespace),
	}
	if T.Service != "" {
		options = append(options, informers.WithTweakListOptions(func(opts *metav1.ListOptions) {
			opts.FieldSelector = "metadata.name=" + T.Service
		}))
	} else {
		options = append(options, informers.WithTweakListOptions(T.Namespace.TweakListOptions))
	}
	factory := informers.NewSharedInformerFactoryWithOptions(T.clientset, 0, options...)
	T.informer = factory.Core().V1().Endpoints().Informer()

	T.updates = make(chan []string, 1)
	T.done = make(chan struct{})

	_, err = T.informer.AddEventHandler(cache.ResourceEventHandlerFuncs{
		AddFunc: func(obj interface{}) {
			T.nudge(obj)
		},
		UpdateFunc: func(_, obj interface{}) {
			T.nudge(obj)
		},
		DeleteFunc: func(obj interface{}) {
			T.nudge(obj)
		},
	})
	if err != nil {
		return err
	}

	go T.informer.Run(T.done)
	return nil
}

func (T *Source) Cleanup() error {
	if T.done == nil {
		return nil
	}
	close(T.done)
	return nil
}

// nudge tells the manager to re-resolve. The payload is only a hint, so an
// empty list is enough.
func (T *Source) nudge(obj any) {
	eps, ok := obj.(*corev1.Endpoints)
	if !ok {
		return
	}
	if !T.Namespace.MatchesNamespace(eps.Namespace) {
		return
	}

	select {
	case T.updates <- nil:
	default:
	}
	T.log.Debug("endpoints changed",
		zap.String("namespace", eps.Namespace),
		zap.String("endpoints", eps.Name),
	)
}

// URLs lists the matching endpoints and builds one URL per ready address.
func (T *Source) URLs(ctx context.Context) ([]string, error) {
	namespace := T.Namespace.Namespace

	if T.Service != "" {
		eps, err := T.clientset.CoreV1().Endpoints(namespace).Get(ctx, T.Service, metav1.GetOptions{})
		if err != nil {
			return nil, err
		}
		return T.endpointURLs(eps), nil
	}

	list, err := T.clientset.CoreV1().Endpoints(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: T.Namespace.LabelSelector(),
	})
	if err != nil {
		return nil, err
	}

	var urls []string
	for i := range list.Items {
		urls = append(urls, T.endpointURLs(&list.Items[i])...)
	}
	return urls, nil
}

func (T *Source) Updates() <-chan []string {
	return T.updates
}

func (T *Source) endpointURLs(eps *corev1.Endpoints) []string {
	var urls []string
	for _, subset := range eps.Subsets {
		port := T.pickPort(subset.Ports)
		if port == 0 {
			continue
		}
		for _, addr := range subset.Addresses {
			urls = append(urls, T.Scheme+"://"+net.JoinHostPort(addr.IP, strconv.Itoa(int(port)))+"/")
		}
	}
	return urls
}

func (T *Source) pickPort(ports []corev1.EndpointPort) int32 {
	for _, port := range ports {
		if T.PortName == "" || port.Name == T.PortName {
			return port.Port
		}
	}
	return 0
}

var _ peers.Source = (*Source)(nil)
var _ caddy.Module = (*Source)(nil)
var _ caddy.Provisioner = (*Source)(nil)
var _ caddy.CleanerUpper = (*Source)(nil)
